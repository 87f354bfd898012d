package glip

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/keepmind9/glipbot/internal/logger"
	"github.com/keepmind9/glipbot/pkg/constants"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type postRequest struct {
	GroupID string `json:"groupId"`
	Text    string `json:"text"`
}

// Sender posts outbound messages behind a process-wide throttle. The
// platform rate-limits the whole account, not individual conversations, so
// back-to-back sends are spaced at least one interval apart: an early caller
// blocks until the interval since the previous send has elapsed. Messages
// are delayed, never dropped. Safe for concurrent use; the limiter owns the
// shared timing state.
type Sender struct {
	platform  Platform
	limiter   *rate.Limiter
	sizeLimit int
}

// NewSender creates a sender. Interval <= 0 selects the default spacing
// (3 s); sizeLimit <= 0 selects the default body cap (50,000 characters).
func NewSender(platform Platform, interval time.Duration, sizeLimit int) *Sender {
	if interval <= 0 {
		interval = constants.RateLimitInterval
	}
	if sizeLimit <= 0 {
		sizeLimit = constants.MessageSizeLimit
	}
	return &Sender{
		platform:  platform,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		sizeLimit: sizeLimit,
	}
}

// Send posts text to a room, blocking until the rate limiter admits the
// call. The size limit counts characters, not bytes; truncation never
// splits a rune.
func (s *Sender) Send(ctx context.Context, room Room, text string) error {
	if utf8.RuneCountInString(text) > s.sizeLimit {
		runes := []rune(text)
		logger.WithFields(logrus.Fields{
			"original_length": len(runes),
			"max_length":      s.sizeLimit,
		}).Info("truncating-message-for-platform-limit")
		text = string(runes[:s.sizeLimit])
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send cancelled while rate limited: %w", err)
	}

	if _, err := s.platform.Post(ctx, PostsPath, postRequest{GroupID: room.ID, Text: text}); err != nil {
		logger.WithFields(logrus.Fields{
			"group_id": room.ID,
			"error":    err,
		}).Error("failed-to-send-message")
		return fmt.Errorf("failed to post to group %s: %w", room.ID, err)
	}

	logger.WithField("group_id", room.ID).Info("message-sent")
	return nil
}

// Reply sends text back to the room a message arrived in
func (s *Sender) Reply(ctx context.Context, msg Message, text string) error {
	return s.Send(ctx, msg.Room, text)
}
