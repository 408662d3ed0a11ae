// Package storage persists the CLI's local state under the UCSP home
// directory.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/GIDEON-BOADU/ucsp-cli/pkg/logger"
)

// Credentials is the persisted token pair for the signed-in user.
type Credentials struct {
	// AccessToken is the short-lived bearer credential for API requests.
	AccessToken string `json:"access_token"`
	// RefreshToken is the long-lived credential exchanged for new pairs.
	RefreshToken string `json:"refresh_token"`
}

// CredentialsStore holds the token pair, backed by a JSON file.
//
// The pair only ever changes wholesale: writes serialize the new pair to a
// temp file and rename it into place, and the in-memory copy swaps under a
// lock, so a concurrent reader observes either the old pair or the new pair,
// never a mix.
type CredentialsStore struct {
	path string

	mu    sync.RWMutex
	creds Credentials
	ok    bool
}

// OpenCredentialsStore loads the store at path.
//
// A missing file means "signed out". A corrupt or incomplete file is treated
// the same way; the next sign-in rewrites it.
func OpenCredentialsStore(path string) (*CredentialsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("missing credentials path")
	}
	s := &CredentialsStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		logger.Warnf("storage: ignoring corrupt credentials file %s: %v", path, err)
		return s, nil
	}
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return s, nil
	}

	s.creds = creds
	s.ok = true
	return s, nil
}

// Path returns the on-disk location of the store.
func (s *CredentialsStore) Path() string { return s.path }

// AccessToken returns the stored access token; ok is false when signed out.
func (s *CredentialsStore) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ok {
		return "", false
	}
	return s.creds.AccessToken, true
}

// RefreshToken returns the stored refresh token; ok is false when signed out.
func (s *CredentialsStore) RefreshToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ok {
		return "", false
	}
	return s.creds.RefreshToken, true
}

// Pair returns the stored pair; ok is false when signed out.
func (s *CredentialsStore) Pair() (Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds, s.ok
}

// SetPair replaces the stored pair.
//
// Both tokens must be present: an access token without its refresh token
// cannot be renewed and is rejected. A failed write leaves the previous pair
// in place.
func (s *CredentialsStore) SetPair(access, refresh string) error {
	if access == "" || refresh == "" {
		return fmt.Errorf("incomplete token pair")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creds := Credentials{AccessToken: access, RefreshToken: refresh}
	if err := s.write(creds); err != nil {
		return err
	}
	s.creds = creds
	s.ok = true
	return nil
}

// Clear removes both tokens and deletes the credentials file.
func (s *CredentialsStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = Credentials{}
	s.ok = false
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", s.path, err)
	}
	return nil
}

func (s *CredentialsStore) write(creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	raw, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
