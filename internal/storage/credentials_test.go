package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCredentialsStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.json")

	store, err := OpenCredentialsStore(path)
	require.NoError(t, err)

	_, ok := store.AccessToken()
	require.False(t, ok)
	_, ok = store.RefreshToken()
	require.False(t, ok)

	require.NoError(t, store.SetPair("access-1", "refresh-1"))

	access, ok := store.AccessToken()
	require.True(t, ok)
	require.Equal(t, "access-1", access)
	refresh, ok := store.RefreshToken()
	require.True(t, ok)
	require.Equal(t, "refresh-1", refresh)

	// A fresh store sees the persisted pair.
	reopened, err := OpenCredentialsStore(path)
	require.NoError(t, err)
	pair, ok := reopened.Pair()
	require.True(t, ok)
	require.Equal(t, Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}, pair)
}

func TestCredentialsStoreClear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.json")
	store, err := OpenCredentialsStore(path)
	require.NoError(t, err)

	require.NoError(t, store.SetPair("access-1", "refresh-1"))
	require.NoError(t, store.Clear())

	_, ok := store.AccessToken()
	require.False(t, ok)
	_, ok = store.RefreshToken()
	require.False(t, ok)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// Clearing an already-empty store is fine.
	require.NoError(t, store.Clear())
}

func TestCredentialsStoreRejectsIncompletePair(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.json")
	store, err := OpenCredentialsStore(path)
	require.NoError(t, err)

	require.Error(t, store.SetPair("access-only", ""))
	require.Error(t, store.SetPair("", "refresh-only"))

	_, ok := store.Pair()
	require.False(t, ok)
}

func TestCredentialsStoreIgnoresCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := OpenCredentialsStore(path)
	require.NoError(t, err)
	_, ok := store.Pair()
	require.False(t, ok)

	// Signing in again repairs the file.
	require.NoError(t, store.SetPair("access-2", "refresh-2"))
	reopened, err := OpenCredentialsStore(path)
	require.NoError(t, err)
	pair, ok := reopened.Pair()
	require.True(t, ok)
	require.Equal(t, "access-2", pair.AccessToken)
}

// TestCredentialsStoreAtomicPair hammers SetPair from one goroutine while a
// reader snapshots the pair: every observation must be a matched pair,
// never tokens from two different writes.
func TestCredentialsStoreAtomicPair(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.json")
	store, err := OpenCredentialsStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SetPair("access-0", "refresh-0"))

	const writes = 200
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 1; i <= writes; i++ {
			if err := store.SetPair(fmt.Sprintf("access-%d", i), fmt.Sprintf("refresh-%d", i)); err != nil {
				t.Errorf("SetPair: %v", err)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			pair, ok := store.Pair()
			if !ok {
				t.Error("pair vanished mid-run")
				return
			}
			var accessN, refreshN int
			if _, err := fmt.Sscanf(pair.AccessToken, "access-%d", &accessN); err != nil {
				t.Errorf("bad access token %q", pair.AccessToken)
				return
			}
			if _, err := fmt.Sscanf(pair.RefreshToken, "refresh-%d", &refreshN); err != nil {
				t.Errorf("bad refresh token %q", pair.RefreshToken)
				return
			}
			if accessN != refreshN {
				t.Errorf("torn pair: %q / %q", pair.AccessToken, pair.RefreshToken)
				return
			}
		}
	}()

	wg.Wait()
}
