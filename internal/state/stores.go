package state

import (
	"time"

	"critiqal/internal/store"
)

// Options configures New.
type Options struct {
	Auth                 *AuthStore // built here when nil
	Posts                PostsAPI
	KV                   store.KV // in-memory when nil
	FeedLimit            int
	NotificationDuration time.Duration
	Clock                Clock
	ApplyTheme           func(Theme)
}

// Stores is the set of stores one client instance owns.
type Stores struct {
	Auth          *AuthStore
	Posts         *PostsStore
	Notifications *NotificationStore
	Theme         *ThemeStore
}

// New builds every store.
func New(opts Options) *Stores {
	auth := opts.Auth
	if auth == nil {
		auth = NewAuthStore()
	}
	kv := opts.KV
	if kv == nil {
		kv = store.NewMemoryStore()
	}
	return &Stores{
		Auth:          auth,
		Posts:         NewPostsStore(opts.Posts, opts.FeedLimit),
		Notifications: NewNotificationStore(opts.Clock, opts.NotificationDuration),
		Theme:         NewThemeStore(kv, opts.ApplyTheme),
	}
}

// Close stops background timers.
func (s *Stores) Close() {
	s.Notifications.Close()
}
