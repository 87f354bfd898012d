package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/keepmind9/glipbot/internal/glip"
	"github.com/keepmind9/glipbot/internal/logger"
	"github.com/sirupsen/logrus"
)

// Engine drives the platform binding for the host runtime: it owns the
// client, identifier cache, event bridge and outbound sender, and it
// implements the reconnect policy around single bridge session attempts.
type Engine struct {
	config   *Config
	platform glip.Platform
	cache    *glip.IdentifierCache
	bridge   *glip.Bridge
	sender   *glip.Sender

	mu         sync.RWMutex
	handler    func(glip.Message)
	reconnects int
}

// NewEngine creates an engine backed by the HTTP platform client
func NewEngine(config *Config) (*Engine, error) {
	client := glip.NewClient(glip.ClientConfig{
		Server:    config.Identity.Server,
		AppKey:    config.Identity.AppKey,
		AppSecret: config.Identity.AppSecret,
	})
	return NewEngineWithPlatform(config, client)
}

// NewEngineWithPlatform creates an engine on an explicit Platform (used in
// tests and by alternative transports)
func NewEngineWithPlatform(config *Config, platform glip.Platform) (*Engine, error) {
	engine := &Engine{config: config, platform: platform}

	cache, err := glip.NewIdentifierCache(platform, 0)
	if err != nil {
		return nil, err
	}
	engine.cache = cache
	engine.sender = glip.NewSender(platform, config.Messages.RateIntervalDuration(), config.Messages.SizeLimit)
	engine.bridge = glip.NewBridge(glip.BridgeConfig{
		Platform: platform,
		Cache:    cache,
		Identity: glip.Identity{
			Username:  config.Identity.Username,
			Extension: config.Identity.Extension,
			Password:  config.Identity.Password,
		},
		Callbacks: glip.Callbacks{
			Connected:       engine.handleConnected,
			Disconnected:    engine.handleDisconnected,
			Message:         engine.handleMessage,
			ResetReconnects: engine.resetReconnectionCount,
		},
	})
	return engine, nil
}

// OnMessage registers the handler invoked for each normalized inbound
// message. The handler runs on the bridge's loop; a slow handler delays the
// next notification.
func (e *Engine) OnMessage(handler func(glip.Message)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = handler
}

// Send posts text to a group, gated by the outbound rate limiter
func (e *Engine) Send(ctx context.Context, groupID, text string) error {
	return e.sender.Send(ctx, glip.Room{ID: groupID}, text)
}

// Reply posts text back to the room a message arrived in
func (e *Engine) Reply(ctx context.Context, msg glip.Message, text string) error {
	return e.sender.Reply(ctx, msg, text)
}

// Self returns the bot's own identity once a session has connected
func (e *Engine) Self() glip.Person {
	return e.bridge.Self()
}

// QueryRoom always returns ErrRoomsNotSupported: the platform binding
// cannot enumerate or address rooms outside inbound events
func (e *Engine) QueryRoom(name string) (glip.Room, error) {
	return glip.Room{}, glip.ErrRoomsNotSupported
}

// Rooms always returns ErrRoomsNotSupported
func (e *Engine) Rooms() ([]glip.Room, error) {
	return nil, glip.ErrRoomsNotSupported
}

func (e *Engine) handleConnected() {
	logger.Info("platform-session-live")
}

func (e *Engine) handleDisconnected() {
	logger.Debug("platform-session-closed")
}

func (e *Engine) handleMessage(msg glip.Message) {
	e.mu.RLock()
	handler := e.handler
	e.mu.RUnlock()
	if handler == nil {
		logger.WithField("group_id", msg.Room.ID).Debug("no-message-handler-registered")
		return
	}
	handler(msg)
}

func (e *Engine) resetReconnectionCount() {
	e.mu.Lock()
	e.reconnects = 0
	e.mu.Unlock()
}

// nextBackoff computes the delay before the next session attempt. Auth
// failures jump straight to the cap: credentials only change out-of-band,
// and a fast retry would hammer the token endpoint.
func (e *Engine) nextBackoff(err error) time.Duration {
	base := e.config.Reconnect.BaseDelayDuration()
	max := e.config.Reconnect.MaxDelayDuration()

	var authErr *glip.AuthError
	if errors.As(err, &authErr) {
		return max
	}

	e.mu.Lock()
	attempt := e.reconnects
	e.reconnects++
	e.mu.Unlock()

	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	return delay
}

// Run drives bridge sessions until the context is cancelled. Each session
// attempt ends in one of three outcomes: a stop request exits cleanly, and
// both failure and clean session loss are retried after a backoff delay.
func (e *Engine) Run(ctx context.Context) error {
	for {
		outcome, err := e.bridge.ServeOnce(ctx)
		switch outcome {
		case glip.OutcomeStopped:
			logger.Info("engine-stopped")
			return nil
		case glip.OutcomeDisconnected:
			logger.WithField("error", err).Warn("session-disconnected")
		case glip.OutcomeFailed:
			logger.WithField("error", err).Error("session-failed")
		}

		delay := e.nextBackoff(err)
		logger.WithFields(logrus.Fields{
			"delay":   delay.String(),
			"outcome": outcome.String(),
		}).Info("reconnecting-after-delay")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}
