package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/GIDEON-BOADU/ucsp-cli/internal/config"
	"github.com/GIDEON-BOADU/ucsp-cli/internal/websocket"
	"github.com/GIDEON-BOADU/ucsp-cli/pkg/logger"
)

// socketTimeout bounds how long notification commands wait on the socket
// for a handshake or a reply.
const socketTimeout = 10 * time.Second

// NotificationsCommand shows recent notifications, marks one as read, or
// follows the realtime stream until interrupted.
func NotificationsCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("notifications", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	follow := fs.Bool("follow", false, "Stream notifications until interrupted")
	limit := fs.Int("limit", 10, "How many recent notifications to fetch")
	markRead := fs.Int64("mark-read", 0, "Mark this notification id as read and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}

	endpoint, err := cfg.NotificationsURL()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := d.mgr.EnsureFresh(ctx); err != nil {
		return err
	}

	printer := newNotificationPrinter(*follow)
	client, err := websocket.New(websocket.Config{
		URL:      endpoint,
		Token:    d.store.AccessToken,
		Refresh:  renewSession(d.mgr),
		Listener: printer,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := printer.waitConnected(ctx); err != nil {
		return err
	}

	switch {
	case *markRead != 0:
		if err := client.MarkAsRead(*markRead); err != nil {
			return err
		}
		// The backend confirms with a count update.
		select {
		case count := <-printer.counts:
			fmt.Printf("Marked #%d as read, %d unread left.\n", *markRead, count)
		case <-time.After(socketTimeout):
			fmt.Printf("Marked #%d as read.\n", *markRead)
		case <-ctx.Done():
		}
		return nil

	case *follow:
		if err := client.RequestUnreadCount(); err != nil {
			return err
		}
		fmt.Println("Following notifications, press Ctrl+C to stop.")
		<-ctx.Done()
		return nil

	default:
		if err := client.RequestRecentNotifications(*limit); err != nil {
			return err
		}
		select {
		case ns := <-printer.recent:
			if len(ns) == 0 {
				fmt.Println("No notifications.")
				return nil
			}
			for _, n := range ns {
				fmt.Println(formatNotification(n))
			}
			return nil
		case <-time.After(socketTimeout):
			return fmt.Errorf("timed out waiting for notifications")
		case <-ctx.Done():
			return nil
		}
	}
}

// notificationPrinter renders socket events. In follow mode pushed events
// print as they arrive, otherwise they only feed the coordination channels.
type notificationPrinter struct {
	follow    bool
	connected chan struct{}
	counts    chan int
	recent    chan []websocket.Notification
	once      sync.Once
}

func newNotificationPrinter(follow bool) *notificationPrinter {
	return &notificationPrinter{
		follow:    follow,
		connected: make(chan struct{}),
		counts:    make(chan int, 1),
		recent:    make(chan []websocket.Notification, 1),
	}
}

func (p *notificationPrinter) waitConnected(ctx context.Context) error {
	select {
	case <-p.connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(socketTimeout):
		return fmt.Errorf("timed out waiting for the notification socket")
	}
}

func (p *notificationPrinter) OnConnected(info websocket.ConnectionInfo) {
	logger.Debugf("notification socket connected as %s", info.Username)
	p.once.Do(func() { close(p.connected) })
}

func (p *notificationPrinter) OnDisconnected(reason string) {
	logger.Debugf("notification socket disconnected: %s", reason)
}

func (p *notificationPrinter) OnNotification(n websocket.Notification) {
	if p.follow {
		fmt.Println(formatNotification(n))
	}
}

func (p *notificationPrinter) OnUnreadCount(count int) {
	if p.follow {
		fmt.Printf("Unread notifications: %d\n", count)
	}
	select {
	case p.counts <- count:
	default:
	}
}

func (p *notificationPrinter) OnRecentNotifications(ns []websocket.Notification) {
	select {
	case p.recent <- ns:
	default:
	}
}

func (p *notificationPrinter) OnError(message string) {
	logger.Warnf("%s", message)
}

func formatNotification(n websocket.Notification) string {
	line := fmt.Sprintf("#%-4d [%s] %s", n.ID, n.Type, n.Title)
	if n.Message != "" {
		line += ": " + n.Message
	}
	if n.Read {
		return line + " (read)"
	}
	return line + " (unread)"
}
