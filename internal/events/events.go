// Package events delivers front desk notifications outside the process:
// to NATS subjects and to websocket clients.
package events

import (
	"context"
	"time"

	"zenstay/internal/core"
	"zenstay/pkg/domain"
)

// Event is the wire form of a notification.
type Event struct {
	Kind     string    `json:"kind"`
	Level    string    `json:"level"`
	Message  string    `json:"message"`
	EntityID string    `json:"entityId,omitempty"`
	At       time.Time `json:"at"`
}

// NewEvent stamps n with at.
func NewEvent(n domain.Notification, at time.Time) Event {
	return Event{Kind: n.Kind, Level: n.Level, Message: n.Message, EntityID: n.EntityID, At: at}
}

// Fanout delivers every notification to each notifier in order.
type Fanout []core.Notifier

// Notify implements core.Notifier.
func (f Fanout) Notify(ctx context.Context, n domain.Notification) {
	for _, notifier := range f {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}
