package glip

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/keepmind9/glipbot/internal/logger"
	"github.com/keepmind9/glipbot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// Notification is a push event delivered via the platform's subscription
// mechanism. Body is kept raw; only post events are decoded further.
type Notification struct {
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body"`
}

// EventTypePostAdded is the only inbound event type that yields a
// user-visible message; all other types are silently ignored.
const EventTypePostAdded = "PostAdded"

// PostBody is the decoded body of a post notification
type PostBody struct {
	EventType string `json:"eventType"`
	GroupID   string `json:"groupId"`
	CreatorID string `json:"creatorId"`
	Text      string `json:"text"`
}

// Subscription is a push subscription on the platform. The lifecycle is:
// AddEvents and OnNotification before Register; Destroy tears the
// subscription down (best effort).
type Subscription interface {
	// AddEvents appends event filters to subscribe to
	AddEvents(filters []string)

	// OnNotification sets the handler invoked for each delivered
	// notification, in delivery order
	OnNotification(handler func(Notification))

	// Register creates the subscription on the platform and starts delivery
	Register(ctx context.Context) error

	// Destroy stops delivery and removes the subscription from the
	// platform. It waits for in-flight delivery to finish, so the
	// notification handler must not block indefinitely.
	Destroy() error
}

type subscriptionRequest struct {
	EventFilters []string         `json:"eventFilters"`
	DeliveryMode subscriptionMode `json:"deliveryMode"`
}

type subscriptionMode struct {
	TransportType string `json:"transportType"`
	Address       string `json:"address,omitempty"`
}

type subscriptionResponse struct {
	ID           string           `json:"id"`
	DeliveryMode subscriptionMode `json:"deliveryMode"`
}

// wsSubscription delivers notifications over a WebSocket long connection,
// mirroring the platform's push transport. A reader goroutine decodes frames
// and invokes the handler; a read error ends delivery and the bridge's
// liveness probe surfaces the session loss.
type wsSubscription struct {
	mu      sync.RWMutex
	client  *Client
	filters []string
	handler func(Notification)
	id      string
	conn    *websocket.Conn
	done    chan struct{}
}

func newWSSubscription(client *Client) *wsSubscription {
	return &wsSubscription{client: client}
}

// AddEvents appends event filters to subscribe to
func (s *wsSubscription) AddEvents(filters []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, filters...)
}

// OnNotification sets the notification handler in a thread-safe manner
func (s *wsSubscription) OnNotification(handler func(Notification)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

func (s *wsSubscription) getHandler() func(Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

// Register creates the subscription on the platform, dials the delivery
// endpoint it returns, and starts the reader goroutine
func (s *wsSubscription) Register(ctx context.Context) error {
	s.mu.RLock()
	filters := append([]string(nil), s.filters...)
	s.mu.RUnlock()

	if len(filters) == 0 {
		return fmt.Errorf("subscription has no event filters")
	}

	raw, err := s.client.Post(ctx, subscriptionPath, subscriptionRequest{
		EventFilters: filters,
		DeliveryMode: subscriptionMode{TransportType: "WebSocket"},
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	var created subscriptionResponse
	if err := json.Unmarshal(raw, &created); err != nil {
		return fmt.Errorf("failed to decode subscription response: %w", err)
	}
	if created.DeliveryMode.Address == "" {
		return fmt.Errorf("subscription response has no delivery address")
	}

	dialer := websocket.Dialer{HandshakeTimeout: constants.DefaultHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, created.DeliveryMode.Address, nil)
	if err != nil {
		// The platform-side subscription exists but cannot deliver; remove
		// it rather than orphaning it (best effort).
		if delErr := s.client.delete(context.Background(), subscriptionPath+"/"+created.ID); delErr != nil {
			logger.WithFields(logrus.Fields{
				"subscription_id": created.ID,
				"error":           delErr,
			}).Warn("failed-to-delete-subscription")
		}
		return fmt.Errorf("failed to dial delivery endpoint: %w", err)
	}

	s.mu.Lock()
	s.id = created.ID
	s.conn = conn
	s.done = make(chan struct{})
	s.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"subscription_id": created.ID,
		"event_filters":   filters,
	}).Info("subscription-registered")

	go s.readLoop(conn)
	return nil
}

func (s *wsSubscription) readLoop(conn *websocket.Conn) {
	defer close(s.done)
	for {
		var notification Notification
		if err := conn.ReadJSON(&notification); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Debug("subscription-delivery-closed")
			} else {
				logger.WithField("error", err).Warn("subscription-read-failed")
			}
			return
		}
		if handler := s.getHandler(); handler != nil {
			handler(notification)
		}
	}
}

// Destroy closes the delivery connection and removes the subscription from
// the platform. The remote delete is best effort.
func (s *wsSubscription) Destroy() error {
	s.mu.Lock()
	conn := s.conn
	id := s.id
	done := s.done
	s.conn = nil
	s.id = ""
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
		<-done
	}
	if id == "" {
		return nil
	}
	if err := s.client.delete(context.Background(), subscriptionPath+"/"+id); err != nil {
		logger.WithFields(logrus.Fields{
			"subscription_id": id,
			"error":           err,
		}).Warn("failed-to-delete-subscription")
		return err
	}
	logger.WithField("subscription_id", id).Info("subscription-destroyed")
	return nil
}
