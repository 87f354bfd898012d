package constants

import "time"

// Message limits
const (
	// MessageSizeLimit is the maximum inbound/outbound post body length in
	// characters. Exposed to the host runtime as a configuration value;
	// outbound bodies beyond the limit are truncated before posting.
	MessageSizeLimit = 50000
)

// Rate limiting
const (
	// RateLimitInterval is the minimum spacing between outbound post calls.
	// The platform enforces account-wide API rate limits, so the throttle is
	// per-process, not per-room.
	RateLimitInterval = 3 * time.Second
)

// Timeouts and delays
const (
	// LivenessPollInterval is the delay between session liveness checks while
	// the event bridge is listening. Event delivery itself is push-driven via
	// the subscription; this poll only detects token-refresh failure.
	LivenessPollInterval = 100 * time.Millisecond
	// DefaultHTTPTimeout is the timeout for platform REST calls
	DefaultHTTPTimeout = 30 * time.Second
	// DefaultHandshakeTimeout is the timeout for the subscription WebSocket dial
	DefaultHandshakeTimeout = 10 * time.Second
)

// Identifier cache
const (
	// CacheCapacity is the default per-kind LRU capacity of the identifier cache
	CacheCapacity = 128
)

// Notification buffer
const (
	// NotificationBufferSize is the buffer size of the bridge's notification
	// channel. A full buffer blocks the subscription reader, preserving
	// delivery order under backpressure.
	NotificationBufferSize = 100
)

// Reconnect policy defaults
const (
	// DefaultReconnectBaseDelay is the initial delay before reattempting a session
	DefaultReconnectBaseDelay = 1 * time.Second
	// DefaultReconnectMaxDelay caps the exponential reconnect backoff
	DefaultReconnectMaxDelay = 60 * time.Second
)

// Logging defaults
const (
	// DefaultLogMaxSize is the default maximum log file size in MB
	DefaultLogMaxSize = 100
	// DefaultLogMaxBackups is the default number of rotated log files to keep
	DefaultLogMaxBackups = 5
	// DefaultLogMaxAge is the default maximum number of days to retain old logs
	DefaultLogMaxAge = 30
)

// Secret masking
const (
	// MinSecretLengthForMasking is the minimum secret length to apply masking
	MinSecretLengthForMasking = 10
	// SecretMaskPrefixLength is the length of prefix to show before masking
	SecretMaskPrefixLength = 4
	// SecretMaskSuffixLength is the length of suffix to show after masking
	SecretMaskSuffixLength = 4
)
