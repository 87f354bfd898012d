package glip

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/keepmind9/glipbot/internal/logger"
	"github.com/keepmind9/glipbot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// State is the bridge's position in its session lifecycle
type State int

const (
	StateDisconnected State = iota
	StateAuthenticating
	StateSubscribing
	StateListening
	StateReconnecting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateAuthenticating:
		return "authenticating"
	case StateSubscribing:
		return "subscribing"
	case StateListening:
		return "listening"
	case StateReconnecting:
		return "reconnecting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Outcome is the tri-state result of one full session attempt
type Outcome int

const (
	// OutcomeStopped means the session ended on an explicit cancellation
	// request and teardown completed
	OutcomeStopped Outcome = iota
	// OutcomeDisconnected means the session's liveness probe turned false
	// (token refresh failed); the host decides whether to reconnect
	OutcomeDisconnected
	// OutcomeFailed means login or subscription registration failed before
	// the session went live
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStopped:
		return "stopped"
	case OutcomeDisconnected:
		return "disconnected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Identity is the bot's login credentials on the platform
type Identity struct {
	Username  string
	Extension string
	Password  string
}

// Callbacks is the host runtime's lifecycle and event surface. Nil fields
// are skipped, except Disconnected which is simply not called when nil.
type Callbacks struct {
	// Connected is invoked once the subscription is live
	Connected func()
	// Disconnected is invoked exactly once on every ServeOnce exit path
	// (stop, failure, clean session loss)
	Disconnected func()
	// Message receives each normalized inbound message
	Message func(Message)
	// ResetReconnects tells the host its reconnection counter may be cleared
	ResetReconnects func()
}

// Bridge owns one session's subscription lifecycle: authenticate, register
// the push subscription, convert inbound notifications to normalized
// messages, and detect session death. It does not loop or retry; the host
// runtime reinvokes ServeOnce to reconnect.
type Bridge struct {
	platform     Platform
	cache        *IdentifierCache
	callbacks    Callbacks
	identity     Identity
	pollInterval time.Duration
	state        State
	self         Person
}

// BridgeConfig configures a Bridge
type BridgeConfig struct {
	Platform  Platform
	Cache     *IdentifierCache
	Callbacks Callbacks
	Identity  Identity

	// PollInterval overrides the liveness poll interval (used in tests)
	PollInterval time.Duration
}

// NewBridge creates an event bridge in the disconnected state
func NewBridge(cfg BridgeConfig) *Bridge {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = constants.LivenessPollInterval
	}
	return &Bridge{
		platform:     cfg.Platform,
		cache:        cfg.Cache,
		callbacks:    cfg.Callbacks,
		identity:     cfg.Identity,
		pollInterval: pollInterval,
		state:        StateDisconnected,
	}
}

// Self returns the bot's own identity, valid after a successful login
func (b *Bridge) Self() Person {
	return b.self
}

func (b *Bridge) setState(state State) {
	logger.WithFields(logrus.Fields{
		"from": b.state.String(),
		"to":   state.String(),
	}).Debug("bridge-state-change")
	b.state = state
}

// ServeOnce runs one full session attempt: login, subscribe, listen until
// the context is cancelled or the session dies. The disconnect callback
// fires on every exit path. The error carries detail for non-Stopped
// outcomes (AuthError for login failures, ErrSessionExpired for liveness
// loss).
func (b *Bridge) ServeOnce(ctx context.Context) (Outcome, error) {
	logger.Info("initializing-connection")

	defer func() {
		logger.Debug("triggering-disconnect-callback")
		if b.callbacks.Disconnected != nil {
			b.callbacks.Disconnected()
		}
	}()

	b.setState(StateAuthenticating)
	if err := b.platform.Login(ctx, b.identity.Username, b.identity.Extension, b.identity.Password); err != nil {
		b.setState(StateTerminated)
		return OutcomeFailed, &AuthError{Err: err}
	}

	// Resolve and cache the bot's own identity. Failure is not fatal: the
	// session can still relay messages without knowing who it is.
	if self, err := b.cache.User(ctx, SelfID); err != nil {
		logger.WithField("error", err).Warn("failed-to-resolve-bot-identity")
	} else {
		b.self = self
	}

	b.setState(StateSubscribing)
	subscription := b.platform.Subscribe()
	subscription.AddEvents([]string{PostsEventFilter})

	// A full buffer blocks the subscription reader rather than dropping or
	// reordering notifications; quit releases a blocked reader at teardown.
	notifications := make(chan Notification, constants.NotificationBufferSize)
	quit := make(chan struct{})
	subscription.OnNotification(func(n Notification) {
		select {
		case notifications <- n:
		case <-quit:
		}
	})

	if err := subscription.Register(ctx); err != nil {
		b.setState(StateTerminated)
		return OutcomeFailed, fmt.Errorf("failed to register subscription: %w", err)
	}

	// Reclaim the subscription on every exit path. The engine reconnects in
	// a loop; an abandoned subscription would leak its reader goroutine and
	// delivery connection each cycle.
	defer func() {
		close(quit)
		if err := subscription.Destroy(); err != nil {
			logger.WithField("error", err).Warn("subscription-teardown-failed")
		}
	}()

	if b.callbacks.ResetReconnects != nil {
		b.callbacks.ResetReconnects()
	}
	if b.callbacks.Connected != nil {
		b.callbacks.Connected()
	}
	logger.Info("connected")

	b.setState(StateListening)
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("interrupt-received-shutting-down")
			b.setState(StateTerminated)
			return OutcomeStopped, nil

		case notification := <-notifications:
			b.handleNotification(ctx, notification)

		case <-ticker.C:
			if !b.platform.LoggedIn() {
				b.setState(StateReconnecting)
				return OutcomeDisconnected, ErrSessionExpired
			}
		}
	}
}

// handleNotification processes a single inbound notification. Errors are
// logged and swallowed: one malformed event must never kill the session.
func (b *Bridge) handleNotification(ctx context.Context, notification Notification) {
	if err := b.dispatch(ctx, notification); err != nil {
		logger.WithFields(logrus.Fields{
			"event": notification.Event,
			"error": err,
		}).Warn("failed-to-handle-notification")
	}
}

func (b *Bridge) dispatch(ctx context.Context, notification Notification) error {
	var post PostBody
	if err := json.Unmarshal(notification.Body, &post); err != nil {
		return fmt.Errorf("failed to decode notification body: %w", err)
	}
	if post.EventType != EventTypePostAdded {
		return nil
	}
	if post.GroupID == "" || post.CreatorID == "" {
		return fmt.Errorf("post event missing group or creator id")
	}

	logger.WithFields(logrus.Fields{
		"group_id":   post.GroupID,
		"creator_id": post.CreatorID,
	}).Debug("incoming-message")

	room, err := b.cache.Group(ctx, post.GroupID)
	if err != nil {
		return err
	}
	sender, err := b.cache.Occupant(ctx, post.CreatorID, room)
	if err != nil {
		return err
	}

	if b.callbacks.Message != nil {
		b.callbacks.Message(Message{Body: post.Text, Sender: sender, Room: room})
	}
	return nil
}
