package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type recordingWSListener struct {
	connected    chan ConnectionInfo
	disconnected chan string
	notes        chan Notification
	counts       chan int
	recent       chan []Notification
	errs         chan string
}

func newRecordingWSListener() *recordingWSListener {
	return &recordingWSListener{
		connected:    make(chan ConnectionInfo, 16),
		disconnected: make(chan string, 16),
		notes:        make(chan Notification, 16),
		counts:       make(chan int, 16),
		recent:       make(chan []Notification, 16),
		errs:         make(chan string, 16),
	}
}

func (l *recordingWSListener) OnConnected(info ConnectionInfo) {
	l.connected <- info
}

func (l *recordingWSListener) OnDisconnected(reason string) {
	l.disconnected <- reason
}

func (l *recordingWSListener) OnNotification(n Notification) {
	l.notes <- n
}

func (l *recordingWSListener) OnUnreadCount(count int) {
	l.counts <- count
}

func (l *recordingWSListener) OnRecentNotifications(ns []Notification) {
	l.recent <- ns
}

func (l *recordingWSListener) OnError(message string) {
	l.errs <- message
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout waiting for %s", what)
		panic("unreachable")
	}
}

// notificationBackend mimics the backend's notification consumer: it
// validates the token query parameter, closes unauthenticated connections
// with code 4001 and answers the request messages.
type notificationBackend struct {
	validToken atomic.Value
	lastMarked atomic.Int64
	pushOnJoin []Notification
}

func newNotificationBackend(validToken string) *notificationBackend {
	b := &notificationBackend{}
	b.validToken.Store(validToken)
	return b
}

func (b *notificationBackend) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := testUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if r.URL.Query().Get("token") != b.validToken.Load().(string) {
		deadline := time.Now().Add(time.Second)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeCodeUnauthorized, "unauthorized"), deadline)
		conn.SetReadDeadline(deadline)
		conn.ReadMessage()
		return
	}

	conn.WriteJSON(map[string]interface{}{
		"type":     eventConnectionEstablished,
		"message":  "Connected to notifications",
		"user_id":  7,
		"username": "alice",
	})
	for _, n := range b.pushOnJoin {
		conn.WriteJSON(map[string]interface{}{
			"type":         eventNotification,
			"notification": n,
		})
	}

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case messageUnreadCount:
			conn.WriteJSON(map[string]interface{}{"type": eventUnreadCount, "count": 3})
		case messageMarkAsRead:
			b.lastMarked.Store(msg.NotificationID)
			conn.WriteJSON(map[string]interface{}{"type": eventCountUpdate, "count": 2})
		case messageRecent:
			ns := []Notification{
				{ID: 1, Title: "Order confirmed", Type: "order_update"},
				{ID: 2, Title: "New service", Type: "service_created"},
				{ID: 3, Title: "Welcome", Type: "system"},
			}
			if msg.Limit > 0 && msg.Limit < len(ns) {
				ns = ns[:msg.Limit]
			}
			conn.WriteJSON(map[string]interface{}{"type": eventRecentNotifications, "notifications": ns})
		}
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notifications/"
}

func TestClientReceivesNotifications(t *testing.T) {
	t.Parallel()

	backend := newNotificationBackend("tok-1")
	backend.pushOnJoin = []Notification{{
		ID:       11,
		Title:    "Booking accepted",
		Message:  "Your laundry booking was accepted",
		Type:     "booking_update",
		Priority: "high",
	}}
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	defer server.Close()

	listener := newRecordingWSListener()
	client, err := New(Config{
		URL:      wsURL(server),
		Token:    func() (string, bool) { return "tok-1", true },
		Listener: listener,
	})
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	info := waitFor(t, listener.connected, "connection")
	require.EqualValues(t, 7, info.UserID)
	require.Equal(t, "alice", info.Username)

	n := waitFor(t, listener.notes, "notification")
	require.EqualValues(t, 11, n.ID)
	require.Equal(t, "Booking accepted", n.Title)
	require.Equal(t, "high", n.Priority)
	require.False(t, n.Read)
}

func TestClientRequestResponses(t *testing.T) {
	t.Parallel()

	backend := newNotificationBackend("tok-1")
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	defer server.Close()

	listener := newRecordingWSListener()
	client, err := New(Config{
		URL:      wsURL(server),
		Token:    func() (string, bool) { return "tok-1", true },
		Listener: listener,
	})
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	waitFor(t, listener.connected, "connection")

	require.NoError(t, client.RequestUnreadCount())
	require.Equal(t, 3, waitFor(t, listener.counts, "unread count"))

	require.NoError(t, client.RequestRecentNotifications(2))
	recent := waitFor(t, listener.recent, "recent notifications")
	require.Len(t, recent, 2)
	require.Equal(t, "Order confirmed", recent[0].Title)

	require.NoError(t, client.MarkAsRead(42))
	require.Equal(t, 2, waitFor(t, listener.counts, "count update"))
	require.EqualValues(t, 42, backend.lastMarked.Load())
}

// A mid-flight 4001 close renews the session and reconnects with the new
// token.
func TestClientRenewsAfterUnauthorizedClose(t *testing.T) {
	t.Parallel()

	backend := newNotificationBackend("good-token")
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	defer server.Close()

	var current atomic.Value
	current.Store("stale-token")
	var refreshes atomic.Int32

	listener := newRecordingWSListener()
	client, err := New(Config{
		URL:   wsURL(server),
		Token: func() (string, bool) { return current.Load().(string), true },
		Refresh: func(context.Context) error {
			refreshes.Add(1)
			current.Store("good-token")
			return nil
		},
		Listener:       listener,
		ReconnectDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	// The handshake itself succeeds, the backend accepts and then closes
	// with 4001, so Connect returns before the rejection is observed.
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	reason := waitFor(t, listener.disconnected, "disconnect")
	require.Equal(t, "unauthorized", reason)

	info := waitFor(t, listener.connected, "reconnect")
	require.Equal(t, "alice", info.Username)
	require.EqualValues(t, 1, refreshes.Load())
}

func TestClientCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	backend := newNotificationBackend("tok-1")
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	defer server.Close()

	listener := newRecordingWSListener()
	client, err := New(Config{
		URL:      wsURL(server),
		Token:    func() (string, bool) { return "tok-1", true },
		Listener: listener,
	})
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	waitFor(t, listener.connected, "connection")

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	require.Error(t, client.RequestUnreadCount())
	require.Error(t, client.Connect(context.Background()))
}

func TestClientConnectRequiresSession(t *testing.T) {
	t.Parallel()

	listener := newRecordingWSListener()
	client, err := New(Config{
		URL:      "ws://127.0.0.1:1/ws/notifications/",
		Token:    func() (string, bool) { return "", false },
		Listener: listener,
	})
	require.NoError(t, err)
	defer client.Close()

	err = client.Connect(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "not signed in")
}
