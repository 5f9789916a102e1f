package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"zenstay/internal/core"
	"zenstay/pkg/domain"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{subject: subject, data: data})
	return nil
}

type countingLogger struct {
	mu    sync.Mutex
	warns int
}

func (l *countingLogger) Debug(string, ...any) {}
func (l *countingLogger) Info(string, ...any)  {}
func (l *countingLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}
func (l *countingLogger) Error(string, ...any) {}

var checkin = domain.Notification{
	Kind:     "booking",
	Message:  "张三 已入住 101-A",
	EntityID: "g-1",
	Level:    domain.LevelSuccess,
}

func TestNATSNotifierPublishesOnKindSubject(t *testing.T) {
	pub := &fakePublisher{}
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	n := NewNATSNotifier(pub, "", nil)
	n.now = func() time.Time { return at }

	n.Notify(context.Background(), checkin)
	n.Notify(context.Background(), domain.Notification{Message: "kindless"})

	require.Len(t, pub.msgs, 2)
	require.Equal(t, "zenstay.notify.booking", pub.msgs[0].subject)
	require.Equal(t, "zenstay.notify.unknown", pub.msgs[1].subject)

	var ev Event
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &ev))
	require.Equal(t, Event{Kind: "booking", Level: domain.LevelSuccess, Message: checkin.Message, EntityID: "g-1", At: at}, ev)
}

func TestNATSNotifierCustomPrefixAndFailures(t *testing.T) {
	logger := &countingLogger{}
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	n := NewNATSNotifier(pub, "hostel.events.", logger)
	require.Equal(t, "hostel.events.overtime", n.Subject(core.KindOvertime))

	n.Notify(context.Background(), checkin)
	require.Equal(t, 1, logger.warns)
	require.NoError(t, n.Close())
}

func TestFanoutDeliversToEveryNotifier(t *testing.T) {
	var got []string
	record := func(name string) core.Notifier {
		return core.NotifierFunc(func(_ context.Context, n domain.Notification) {
			got = append(got, name+":"+n.Kind)
		})
	}
	Fanout{record("a"), nil, record("b")}.Notify(context.Background(), checkin)
	require.Equal(t, []string{"a:booking", "b:booking"}, got)
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestHubBroadcastsToClients(t *testing.T) {
	hub := NewHub(nil, nil)
	conn := dialHub(t, hub)

	hub.Notify(context.Background(), checkin)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	require.Equal(t, "booking", ev.Kind)
	require.Equal(t, checkin.Message, ev.Message)
}

func TestHubRemovesClientOnDisconnect(t *testing.T) {
	hub := NewHub(nil, nil)
	conn := dialHub(t, hub)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	hub.Notify(context.Background(), checkin)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := NewHub(nil, nil)
	conn := dialHub(t, hub)
	hub.Close()
	require.Equal(t, 0, hub.Count())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestHubRejectsDisallowedOrigin(t *testing.T) {
	hub := NewHub(nil, func(origin string) bool { return origin == "https://desk.example" })
	srv := httptest.NewServer(hub)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	header := map[string][]string{"Origin": {"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 403, resp.StatusCode)
}
