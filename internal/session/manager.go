// Package session tracks the stored token pair through its lifecycle:
// inspecting expiry, renewing the pair before it runs out, and telling
// observers when the session ends.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GIDEON-BOADU/ucsp-cli/internal/storage"
	"github.com/GIDEON-BOADU/ucsp-cli/pkg/logger"
)

// RefreshFunc exchanges a refresh token for a fresh token pair.
//
// It is a function type so the session core stays decoupled from the
// concrete API client.
type RefreshFunc func(ctx context.Context, refreshToken string) (access, refresh string, err error)

// LogoutReason tells listeners why the session ended.
type LogoutReason string

const (
	// ReasonRefreshFailed means a token renewal terminally failed and the
	// stored credentials were discarded.
	ReasonRefreshFailed LogoutReason = "refresh failed"
	// ReasonSignOut means the user explicitly signed out.
	ReasonSignOut LogoutReason = "signed out"
)

// Listener observes session lifecycle events.
//
// Callbacks run synchronously on the goroutine that triggered the event and
// must not block.
type Listener interface {
	// OnSessionRefreshed fires after a successful token renewal.
	OnSessionRefreshed()
	// OnLoggedOut fires once per session teardown.
	OnLoggedOut(reason LogoutReason)
}

// Status describes how much life the current access token has left.
type Status struct {
	// ExpiresIn is the number of whole seconds until expiry, never negative.
	ExpiresIn int64
	// Expired is true when no usable session exists or the token has run out.
	Expired bool
	// ExpiringSoon is true when the token is alive but inside the refresh
	// threshold.
	ExpiringSoon bool
}

const (
	defaultRefreshThreshold = 300 * time.Second
	defaultRefreshTimeout   = 15 * time.Second
)

// ManagerConfig carries the Manager dependencies.
type ManagerConfig struct {
	// Store holds the token pair.
	Store *storage.CredentialsStore
	// Refresh performs the network half of a renewal.
	Refresh RefreshFunc
	// Clock defaults to RealClock.
	Clock Clock
	// RefreshThreshold is the "expiring soon" window; defaults to 300s.
	RefreshThreshold time.Duration
	// RefreshTimeout bounds a single renewal call; defaults to 15s.
	RefreshTimeout time.Duration
}

// Manager owns the session lifecycle.
//
// Construct one per process (or per test) and share it. All methods are safe
// for concurrent use; renewals are single-flight.
type Manager struct {
	store     *storage.CredentialsStore
	refresh   RefreshFunc
	clock     Clock
	threshold time.Duration
	timeout   time.Duration

	mu         sync.Mutex
	refreshing bool
	listeners  []Listener
}

// NewManager validates cfg and builds a Manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("missing credentials store")
	}
	if cfg.Refresh == nil {
		return nil, fmt.Errorf("missing refresh func")
	}
	m := &Manager{
		store:     cfg.Store,
		refresh:   cfg.Refresh,
		clock:     cfg.Clock,
		threshold: cfg.RefreshThreshold,
		timeout:   cfg.RefreshTimeout,
	}
	if m.clock == nil {
		m.clock = RealClock{}
	}
	if m.threshold <= 0 {
		m.threshold = defaultRefreshThreshold
	}
	if m.timeout <= 0 {
		m.timeout = defaultRefreshTimeout
	}
	return m, nil
}

// AddListener registers an observer for refresh and logout events.
func (m *Manager) AddListener(l Listener) {
	if l == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Status reports the current session state.
//
// It never fails: a missing or undecodable access token simply reads as
// expired. Comparisons happen in whole unix seconds.
func (m *Manager) Status() Status {
	token, ok := m.store.AccessToken()
	if !ok {
		return Status{Expired: true}
	}
	claims, err := DecodeClaims(token)
	if err != nil {
		return Status{Expired: true}
	}

	left := claims.Exp - m.clock.Now().Unix()
	if left <= 0 {
		return Status{Expired: true}
	}
	return Status{
		ExpiresIn:    left,
		ExpiringSoon: left <= int64(m.threshold/time.Second),
	}
}

// Refresh exchanges the stored refresh token for a new pair.
//
// At most one renewal is in flight at a time: a caller that arrives while
// one is outstanding returns (false, nil) without touching the network. On
// terminal failure the stored pair is cleared and OnLoggedOut fires before
// Refresh returns; the only failure that keeps the session intact is the
// caller cancelling its own context.
func (m *Manager) Refresh(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if m.refreshing {
		m.mu.Unlock()
		logger.Debugf("session: renewal already in flight, skipping")
		return false, nil
	}
	m.refreshing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.refreshing = false
		m.mu.Unlock()
	}()

	refreshToken, ok := m.store.RefreshToken()
	if !ok {
		return false, m.teardown(fmt.Errorf("no refresh token stored"))
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	access, refresh, err := m.refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false, fmt.Errorf("renewal canceled: %w", err)
		}
		return false, m.teardown(fmt.Errorf("renewal request: %w", err))
	}
	if access == "" || refresh == "" {
		return false, m.teardown(fmt.Errorf("renewal returned an incomplete pair"))
	}

	if err := m.store.SetPair(access, refresh); err != nil {
		return false, m.teardown(fmt.Errorf("failed to store renewed pair: %w", err))
	}

	logger.Debugf("session: token pair renewed")
	for _, l := range m.snapshotListeners() {
		l.OnSessionRefreshed()
	}
	return true, nil
}

// EnsureFresh returns a usable access token, renewing first when the stored
// one is expired or inside the refresh threshold.
func (m *Manager) EnsureFresh(ctx context.Context) (string, error) {
	st := m.Status()
	if st.Expired || st.ExpiringSoon {
		if _, err := m.Refresh(ctx); err != nil {
			return "", err
		}
	}
	token, ok := m.store.AccessToken()
	if !ok {
		return "", fmt.Errorf("not signed in")
	}
	return token, nil
}

// SignOut discards the stored pair and tells listeners.
func (m *Manager) SignOut() error {
	if err := m.store.Clear(); err != nil {
		return err
	}
	m.notifyLoggedOut(ReasonSignOut)
	return nil
}

// teardown clears the session, broadcasts the logout, and passes cause
// through. The store is cleared before listeners run so observers reading
// back see the signed-out state.
func (m *Manager) teardown(cause error) error {
	logger.Infof("session: ending session: %v", cause)
	if err := m.store.Clear(); err != nil {
		logger.Warnf("session: failed to clear credentials: %v", err)
	}
	m.notifyLoggedOut(ReasonRefreshFailed)
	return cause
}

func (m *Manager) notifyLoggedOut(reason LogoutReason) {
	for _, l := range m.snapshotListeners() {
		l.OnLoggedOut(reason)
	}
}

func (m *Manager) snapshotListeners() []Listener {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Listener, len(m.listeners))
	copy(out, m.listeners)
	return out
}
