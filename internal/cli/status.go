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
	"github.com/GIDEON-BOADU/ucsp-cli/internal/session"
)

// StatusCommand prints the session state. With --watch it keeps rendering
// while the background scheduler renews the session as needed.
func StatusCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	watch := fs.Bool("watch", false, "Keep watching the session state")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}

	if !*watch {
		fmt.Println(renderStatus(d))
		return nil
	}
	return watchStatus(d)
}

// renderStatus builds the one-line state summary.
func renderStatus(d *deps) string {
	token, ok := d.store.AccessToken()
	if !ok {
		return "Not signed in."
	}

	st := d.mgr.Status()
	if st.Expired {
		return "Session expired. Run `ucsp extend` or sign in again."
	}

	who := ""
	if claims, err := session.DecodeClaims(token); err == nil && claims.UserID != 0 {
		who = fmt.Sprintf(" (user %d)", claims.UserID)
	}
	line := fmt.Sprintf("Session active%s, token expires in %s", who, formatSeconds(st.ExpiresIn))
	if st.ExpiringSoon {
		line += ", expiring soon"
	}
	return line
}

type watchEvents struct {
	loggedOut chan struct{}
	once      sync.Once
}

func (w *watchEvents) OnSessionRefreshed() {
	fmt.Println("Session renewed.")
}

func (w *watchEvents) OnLoggedOut(reason session.LogoutReason) {
	fmt.Printf("Logged out: %s\n", reason)
	w.once.Do(func() { close(w.loggedOut) })
}

func watchStatus(d *deps) error {
	events := &watchEvents{loggedOut: make(chan struct{})}
	d.mgr.AddListener(events)

	sched := session.NewScheduler(d.mgr, d.cfg.CheckInterval)
	sched.Start()
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Re-render only when the line changes so the output stays readable.
	last := ""
	for {
		if line := renderStatus(d); line != last {
			fmt.Println(line)
			last = line
		}
		select {
		case <-ctx.Done():
			return nil
		case <-events.loggedOut:
			return nil
		case <-ticker.C:
		}
	}
}
