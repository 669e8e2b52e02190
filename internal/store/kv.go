// Package store provides durable key-value persistence for credentials,
// the signed-in username, the cookie jar, the UI theme and usage counters.
//
// Three drivers are available:
//   - sqlite: LocalStore, a single-table SQLite database (pure Go driver)
//   - file:   FileStore, one JSON document rewritten atomically, watchable
//   - memory: MemoryStore, for tests and ephemeral runs
package store

import (
	"errors"
	"fmt"
	"strings"

	"critiqal/internal/logging"
)

// Well-known keys.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refresh_token"
	KeyUsername     = "username"
	KeyTheme        = "theme"
	KeyCookies      = "cookies"
	KeyUsage        = "usage"
)

// sessionKeys are removed on sign-out. The theme and usage survive.
var sessionKeys = []string{KeyToken, KeyRefreshToken, KeyUsername, KeyCookies}

// KV is a string key-value store. Get reports whether the key exists.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Options selects and configures a driver.
type Options struct {
	Driver string // sqlite, file, memory
	Path   string
}

// Backend is a KV that owns resources.
type Backend interface {
	KV
	Close() error
}

// Open creates the store selected by opts.
func Open(opts Options) (Backend, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	logging.StoreDebug("Opening store: driver=%s path=%s", driver, opts.Path)

	switch driver {
	case "", "sqlite":
		return NewLocalStore(opts.Path)
	case "file":
		return NewFileStore(opts.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q (want sqlite, file or memory)", opts.Driver)
	}
}

// ClearSession removes every credential-related key. All keys are attempted;
// the first error is returned.
func ClearSession(kv KV) error {
	var firstErr error
	for _, key := range sessionKeys {
		if err := kv.Remove(key); err != nil {
			logging.StoreWarn("Failed to remove %s: %v", key, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// GetString returns the value for key, or "" when missing or unreadable.
func GetString(kv KV, key string) string {
	v, ok, err := kv.Get(key)
	if err != nil {
		logging.StoreWarn("Failed to read %s: %v", key, err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}
