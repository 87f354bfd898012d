package glip

import (
	"errors"
	"fmt"
)

// Sentinel errors for the platform binding
var (
	// ErrRoomsNotSupported is returned by every room-management operation.
	// The platform binding does not support joining, creating, leaving,
	// destroying, inviting to, or enumerating rooms; callers can distinguish
	// "not supported" from "failed" by checking for this error.
	ErrRoomsNotSupported = errors.New("room operations are not supported")

	// ErrSessionExpired reports that the session's liveness probe turned
	// false (the underlying token refresh failed). It is a disconnect
	// trigger, not a crash.
	ErrSessionExpired = errors.New("session is no longer authenticated")
)

// AuthError reports a failed platform login. It is fatal to the current
// session attempt; the host runtime decides whether to retry the bridge.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("platform login failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// LookupError reports a failed entity fetch by id. The identifier cache does
// not store failures, so the next lookup of the same id retries the network.
type LookupError struct {
	Kind string
	ID   string
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("failed to load %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// APIError reports a non-2xx response from the platform REST API
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform API error: status %d: %s", e.Status, e.Body)
}
