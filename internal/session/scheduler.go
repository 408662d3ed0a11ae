package session

import (
	"context"
	"sync"
	"time"

	"github.com/GIDEON-BOADU/ucsp-cli/pkg/logger"
)

const defaultCheckInterval = 60 * time.Second

// Scheduler renews the session in the background.
//
// Every interval it inspects Manager.Status and triggers a renewal once the
// token enters the threshold window. Overlapping triggers are harmless: the
// manager's single-flight guard turns them into no-ops.
type Scheduler struct {
	mgr      *Manager
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler builds a Scheduler; interval defaults to 60s when zero.
func NewScheduler(mgr *Manager, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Scheduler{mgr: mgr, interval: interval}
}

// Start launches the periodic check.
//
// A running scheduler is stopped first, so at most one loop ever exists.
func (s *Scheduler) Start() {
	s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.loop(ctx, done)
}

// Stop halts the loop and waits for it to exit: no check runs after Stop
// returns. Safe to call repeatedly, and before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	st := s.mgr.Status()
	if st.Expired || !st.ExpiringSoon {
		return
	}
	logger.Debugf("session: token expires in %ds, renewing", st.ExpiresIn)
	if _, err := s.mgr.Refresh(ctx); err != nil {
		logger.Warnf("session: background renewal failed: %v", err)
	}
}
