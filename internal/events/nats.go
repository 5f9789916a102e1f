package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"zenstay/internal/core"
	"zenstay/pkg/domain"
)

// DefaultSubjectPrefix is prepended to the notification kind.
const DefaultSubjectPrefix = "zenstay.notify"

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes notifications as JSON events on
// <prefix>.<kind> subjects.
type NATSNotifier struct {
	pub    Publisher
	conn   *nats.Conn
	prefix string
	logger core.Logger
	now    func() time.Time
}

// NewNATSNotifier wraps an existing publisher.
func NewNATSNotifier(pub Publisher, prefix string, logger core.Logger) *NATSNotifier {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = discard{}
	}
	return &NATSNotifier{
		pub:    pub,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ConnectNATS dials url and returns a notifier that owns the connection.
func ConnectNATS(url, prefix string, logger core.Logger) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("zenstay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	n := NewNATSNotifier(conn, prefix, logger)
	n.conn = conn
	return n, nil
}

// Subject returns the subject a notification of kind is published on.
func (n *NATSNotifier) Subject(kind string) string {
	if kind == "" {
		kind = "unknown"
	}
	return n.prefix + "." + kind
}

// Notify implements core.Notifier. Publish failures are logged and dropped.
func (n *NATSNotifier) Notify(_ context.Context, note domain.Notification) {
	subject := n.Subject(note.Kind)
	payload, err := json.Marshal(NewEvent(note, n.now()))
	if err != nil {
		n.logger.Error("encode notification", "subject", subject, "error", err)
		return
	}
	if err := n.pub.Publish(subject, payload); err != nil {
		n.logger.Warn("publish notification", "subject", subject, "error", err)
		return
	}
	n.logger.Debug("notification published", "subject", subject)
}

// Close drains the owned connection, if any.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

type discard struct{}

func (discard) Debug(string, ...any) {}
func (discard) Info(string, ...any)  {}
func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}
