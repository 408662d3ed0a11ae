// Package websocket implements the client for the backend's realtime
// notification socket.
//
// The backend authenticates the socket with a JWT passed as a query
// parameter and closes with code 4001 when the token is rejected. The
// client reacts to that by renewing the session and dialing again, so a
// long-lived subscription survives token rotation.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GIDEON-BOADU/ucsp-cli/pkg/logger"
)

const (
	// defaultReconnectDelay is the initial wait before a reconnect attempt.
	defaultReconnectDelay = 2 * time.Second
	// maxReconnectDelay caps the exponential reconnect backoff.
	maxReconnectDelay = 30 * time.Second
	// dispatcherQueueSize is the callback mailbox size.
	dispatcherQueueSize = 256
)

// errDialUnauthorized marks a handshake rejected for authentication reasons.
var errDialUnauthorized = errors.New("websocket handshake unauthorized")

// TokenFunc supplies the current access token. It reports false when no
// session is active.
type TokenFunc func() (string, bool)

// Listener receives socket events. Callbacks arrive on a single goroutine
// in delivery order and must not block.
type Listener interface {
	// OnConnected is called after the backend confirms the connection.
	OnConnected(info ConnectionInfo)
	// OnDisconnected is called whenever the connection drops, including
	// before an automatic reconnect.
	OnDisconnected(reason string)
	// OnNotification delivers a pushed notification.
	OnNotification(n Notification)
	// OnUnreadCount delivers the unread counter, either pushed by the
	// backend or in response to RequestUnreadCount.
	OnUnreadCount(count int)
	// OnRecentNotifications delivers the response to
	// RequestRecentNotifications.
	OnRecentNotifications(ns []Notification)
	// OnError delivers non-fatal client errors for display or logging.
	OnError(message string)
}

// Config carries the dependencies for a notification socket client.
type Config struct {
	// URL is the socket endpoint, e.g. ws://host/ws/notifications/.
	URL string

	// Token supplies the access token attached to each dial.
	Token TokenFunc

	// Refresh renews the session after the backend rejects the token.
	// Leaving it nil disables renewal, an auth rejection then ends the
	// connection for good.
	Refresh func(ctx context.Context) error

	// Listener receives socket events. Required.
	Listener Listener

	// ReconnectDelay overrides the initial reconnect backoff.
	ReconnectDelay time.Duration
}

// Client maintains a notification socket connection.
type Client struct {
	cfg       Config
	callbacks *dispatcher

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
	closed bool

	// writeMu serializes writes, the underlying connection allows only
	// one concurrent writer.
	writeMu sync.Mutex
}

// New creates a client. Connect starts the connection.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("websocket URL is required")
	}
	if cfg.Token == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if cfg.Listener == nil {
		return nil, fmt.Errorf("listener is required")
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	return &Client{
		cfg:       cfg,
		callbacks: newDispatcher(dispatcherQueueSize),
	}, nil
}

// Connect dials the socket and starts the background read loop. It returns
// once the first dial succeeds. When the handshake is rejected for auth
// reasons the session is renewed and the dial retried once before giving
// up.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client is closed")
	}
	if c.conn != nil {
		c.mu.Unlock()
		return fmt.Errorf("already connected")
	}
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if errors.Is(err, errDialUnauthorized) && c.cfg.Refresh != nil {
		if rerr := c.cfg.Refresh(ctx); rerr != nil {
			return fmt.Errorf("failed to renew session: %w", rerr)
		}
		conn, err = c.dial(ctx)
	}
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	if c.closed || c.conn != nil {
		closed := c.closed
		c.mu.Unlock()
		cancel()
		conn.Close()
		if closed {
			return fmt.Errorf("client is closed")
		}
		return fmt.Errorf("already connected")
	}
	c.conn = conn
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(runCtx, conn, done)
	return nil
}

// Close tears the connection down and stops all background work. It is safe
// to call multiple times and safe to call concurrently with callbacks.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	cancel := c.cancel
	done := c.done
	c.conn = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		// Unblocks the read loop.
		conn.Close()
	}
	if done != nil {
		<-done
	}
	c.callbacks.stop()
	return nil
}

// MarkAsRead asks the backend to mark one notification as read.
func (c *Client) MarkAsRead(notificationID int64) error {
	return c.send(clientMessage{Type: messageMarkAsRead, NotificationID: notificationID})
}

// RequestUnreadCount asks for the current unread counter. The answer
// arrives through Listener.OnUnreadCount.
func (c *Client) RequestUnreadCount() error {
	return c.send(clientMessage{Type: messageUnreadCount})
}

// RequestRecentNotifications asks for the latest notifications. The answer
// arrives through Listener.OnRecentNotifications.
func (c *Client) RequestRecentNotifications(limit int) error {
	return c.send(clientMessage{Type: messageRecent, Limit: limit})
}

func (c *Client) send(msg clientMessage) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	token, ok := c.cfg.Token()
	if !ok {
		return nil, fmt.Errorf("not signed in")
	}

	endpoint := c.cfg.URL + "?token=" + url.QueryEscape(token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %s", errDialUnauthorized, resp.Status)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", c.cfg.URL, err)
	}
	return conn, nil
}

// run owns the connection after Connect: it reads until the connection
// drops, then renews and reconnects as needed until the client is closed.
func (c *Client) run(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		err := c.readLoop(conn)
		c.notifyDisconnected(closeReason(err))

		if c.isClosed() || ctx.Err() != nil {
			return
		}

		// A 4001 close means the backend rejected our token mid-flight.
		// Renew before dialing again.
		if isUnauthorized(err) {
			if c.cfg.Refresh == nil {
				c.notifyError("connection rejected and no session renewal configured")
				return
			}
			logger.Debugf("notification socket rejected the token, renewing session")
			if rerr := c.cfg.Refresh(ctx); rerr != nil {
				c.notifyError(fmt.Sprintf("failed to renew session: %v", rerr))
				return
			}
		}

		conn = c.redial(ctx)
		if conn == nil {
			return
		}
	}
}

// redial reconnects with exponential backoff. It returns nil when the
// client closes or the session cannot be renewed.
func (c *Client) redial(ctx context.Context) *websocket.Conn {
	delay := c.cfg.ReconnectDelay
	refreshed := false

	for {
		conn, err := c.dial(ctx)
		if err == nil {
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				conn.Close()
				return nil
			}
			c.conn = conn
			c.mu.Unlock()
			return conn
		}

		if errors.Is(err, errDialUnauthorized) && c.cfg.Refresh != nil && !refreshed {
			refreshed = true
			if rerr := c.cfg.Refresh(ctx); rerr != nil {
				c.notifyError(fmt.Sprintf("failed to renew session: %v", rerr))
				return nil
			}
			continue
		}

		logger.Debugf("notification socket reconnect failed: %v", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// readLoop reads events until the connection fails and returns the read
// error.
func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return err
		}
		c.handleEvent(env)
	}
}

func (c *Client) handleEvent(env envelope) {
	listener := c.cfg.Listener

	switch env.Type {
	case eventConnectionEstablished:
		info := ConnectionInfo{
			Message:  env.Message,
			UserID:   env.UserID,
			Username: env.Username,
		}
		c.callbacks.do(func() { listener.OnConnected(info) })

	case eventNotification:
		if env.Notification == nil {
			logger.Warnf("notification event without payload")
			return
		}
		n := *env.Notification
		c.callbacks.do(func() { listener.OnNotification(n) })

	case eventCountUpdate, eventUnreadCount:
		count := env.Count
		c.callbacks.do(func() { listener.OnUnreadCount(count) })

	case eventRecentNotifications:
		ns := env.Notifications
		c.callbacks.do(func() { listener.OnRecentNotifications(ns) })

	default:
		logger.Tracef("ignoring unknown event type %q", env.Type)
	}
}

func (c *Client) notifyDisconnected(reason string) {
	listener := c.cfg.Listener
	c.callbacks.do(func() { listener.OnDisconnected(reason) })
}

func (c *Client) notifyError(message string) {
	listener := c.cfg.Listener
	c.callbacks.do(func() { listener.OnError(message) })
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// isUnauthorized reports whether the connection ended with the backend's
// unauthenticated close code.
func isUnauthorized(err error) bool {
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr) && closeErr.Code == closeCodeUnauthorized
}

func closeReason(err error) string {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if closeErr.Text != "" {
			return closeErr.Text
		}
		return fmt.Sprintf("close %d", closeErr.Code)
	}
	if err != nil {
		return err.Error()
	}
	return "connection closed"
}
