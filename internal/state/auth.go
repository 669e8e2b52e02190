package state

import (
	"critiqal/internal/logging"
	"critiqal/internal/types"
)

// Session is the authenticated-user state. IsAuthenticated is true exactly
// when User is non-nil.
type Session struct {
	User            *types.User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

// SessionPatch is a partial Session update. Nil fields are left unchanged.
// Authentication follows User and cannot be patched independently.
type SessionPatch struct {
	User      **types.User
	IsLoading *bool
	Error     *string
}

// AuthStore holds the Session.
type AuthStore struct {
	store *Writable[Session]

	User            Readable[*types.User]
	IsAuthenticated Readable[bool]
	IsLoading       Readable[bool]
	Error           Readable[string]
}

// NewAuthStore returns a store holding the empty Session.
func NewAuthStore() *AuthStore {
	w := NewWritable(Session{})
	return &AuthStore{
		store:           w,
		User:            Derive[Session](w, func(s Session) *types.User { return s.User }),
		IsAuthenticated: Derive[Session](w, func(s Session) bool { return s.IsAuthenticated }),
		IsLoading:       Derive[Session](w, func(s Session) bool { return s.IsLoading }),
		Error:           Derive[Session](w, func(s Session) string { return s.Error }),
	}
}

// Get returns the current Session.
func (a *AuthStore) Get() Session { return a.store.Get() }

// Subscribe observes the Session.
func (a *AuthStore) Subscribe(fn func(Session)) func() { return a.store.Subscribe(fn) }

// SetUser records a signed-in user and clears any error. A nil user signs out.
func (a *AuthStore) SetUser(u *types.User) {
	a.store.Update(func(s Session) Session {
		s.User = u
		s.IsAuthenticated = u != nil
		s.Error = ""
		return s
	})
	if u != nil {
		logging.SessionDebug("Session user set: %s", u.Username)
	}
}

// SetLoading sets the loading flag.
func (a *AuthStore) SetLoading(loading bool) {
	a.store.Update(func(s Session) Session {
		s.IsLoading = loading
		return s
	})
}

// SetError sets the error message; "" clears it.
func (a *AuthStore) SetError(msg string) {
	a.store.Update(func(s Session) Session {
		s.Error = msg
		return s
	})
}

// SetState applies a partial update.
func (a *AuthStore) SetState(p SessionPatch) {
	a.store.Update(func(s Session) Session {
		if p.User != nil {
			s.User = *p.User
		}
		if p.IsLoading != nil {
			s.IsLoading = *p.IsLoading
		}
		if p.Error != nil {
			s.Error = *p.Error
		}
		s.IsAuthenticated = s.User != nil
		return s
	})
}

// ClearAuthState resets to the empty Session.
func (a *AuthStore) ClearAuthState() {
	a.store.Set(Session{})
	logging.SessionDebug("Session cleared")
}
