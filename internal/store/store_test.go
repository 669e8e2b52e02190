package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openAll(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()

	local, err := NewLocalStore(filepath.Join(dir, "kv.db"))
	require.NoError(t, err)
	file, err := NewFileStore(filepath.Join(dir, "kv.json"))
	require.NoError(t, err)

	backends := map[string]Backend{
		"memory": NewMemoryStore(),
		"sqlite": local,
		"file":   file,
	}
	t.Cleanup(func() {
		for _, b := range backends {
			b.Close()
		}
	})
	return backends
}

func TestKVContract(t *testing.T) {
	for name, kv := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := kv.Get(KeyToken)
			require.NoError(t, err)
			require.False(t, ok, "fresh store should not contain token")

			require.NoError(t, kv.Set(KeyToken, "abc"))
			require.NoError(t, kv.Set(KeyToken, "def"))
			v, ok, err := kv.Get(KeyToken)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "def", v)

			require.NoError(t, kv.Remove(KeyToken))
			require.NoError(t, kv.Remove(KeyToken), "removing a missing key is not an error")
			_, ok, err = kv.Get(KeyToken)
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestClearSessionKeepsTheme(t *testing.T) {
	for name, kv := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{KeyToken, KeyRefreshToken, KeyUsername, KeyCookies, KeyTheme} {
				require.NoError(t, kv.Set(k, "x"))
			}

			require.NoError(t, ClearSession(kv))

			for _, k := range sessionKeys {
				require.Empty(t, GetString(kv, k), "key %s should be cleared", k)
			}
			require.Equal(t, "x", GetString(kv, KeyTheme))
		})
	}
}

func TestClosedStoreErrors(t *testing.T) {
	for name, kv := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Close())
			require.ErrorIs(t, kv.Set("k", "v"), ErrClosed)
			_, _, err := kv.Get("k")
			require.ErrorIs(t, err, ErrClosed)
		})
	}
}

func TestOpenDrivers(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Driver: "memory"})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = Open(Options{Driver: "sqlite", Path: filepath.Join(dir, "a.db")})
	require.NoError(t, err)
	require.IsType(t, &LocalStore{}, s)
	s.Close()

	s, err = Open(Options{Driver: "file", Path: filepath.Join(dir, "a.json")})
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, s)

	_, err = Open(Options{Driver: "redis"})
	require.Error(t, err)
}

func TestLocalStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kv.db")

	s, err := NewLocalStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyUsername, "alice"))
	require.NoError(t, s.Set(KeyTheme, `{"mode":"dark"}`))
	require.NoError(t, s.Close())

	s, err = NewLocalStore(path)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, "alice", GetString(s, KeyUsername))
	require.Equal(t, `{"mode":"dark"}`, GetString(s, KeyTheme))
}

func TestFileStorePersistsWithPrivateMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyToken, "secret"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	require.Equal(t, "secret", GetString(reopened, KeyToken))
}

func TestFileStoreRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewFileStore(path)
	require.Error(t, err)
}

func TestFileStoreWatchReportsExternalWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")
	watched, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, watched.Set(KeyTheme, "light"))

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan []string, 8)
	done := make(chan error, 1)
	go func() {
		done <- watched.Watch(ctx, func(changed []string) {
			select {
			case changes <- changed:
			default:
			}
		})
	}()

	other, err := NewFileStore(path)
	require.NoError(t, err)

	// The watcher may not be registered yet; keep writing until it sees a change.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	mode := "dark"
	require.NoError(t, other.Set(KeyTheme, mode))

wait:
	for {
		select {
		case changed := <-changes:
			require.Equal(t, []string{KeyTheme}, changed)
			break wait
		case <-tick.C:
			if mode == "dark" {
				mode = "light"
			} else {
				mode = "dark"
			}
			require.NoError(t, other.Set(KeyTheme, mode))
		case <-deadline:
			t.Fatal("watcher never reported the external write")
		}
	}

	cancel()
	require.NoError(t, <-done)

	v := GetString(watched, KeyTheme)
	require.Contains(t, []string{"light", "dark"}, v)
}
