package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"critiqal/internal/logging"
	"critiqal/internal/store"

	"golang.org/x/net/publicsuffix"
)

// Credentials attaches the session credential to requests and persists
// credentials returned by the server. A deployment uses exactly one strategy.
type Credentials interface {
	// Mode names the strategy ("cookie" or "bearer").
	Mode() string
	// Apply attaches the credential unless the caller already set one.
	Apply(req *http.Request)
	// Jar returns the cookie jar the HTTP client should use, or nil.
	Jar() http.CookieJar
	// RefreshBody is the JSON body of POST /auth/refresh, or nil.
	RefreshBody() any
	// Save persists tokens from a sign-in, sign-up or refresh response.
	Save(token, refreshToken string) error
	// Clear forgets every credential, in memory and on disk.
	Clear() error
}

// =============================================================================
// BEARER
// =============================================================================

// BearerCredentials sends "Authorization: Bearer <token>" read from the store
// on every request, so concurrent requests always see the latest token.
type BearerCredentials struct {
	kv store.KV
}

// NewBearerCredentials returns bearer credentials backed by kv.
func NewBearerCredentials(kv store.KV) *BearerCredentials {
	return &BearerCredentials{kv: kv}
}

func (b *BearerCredentials) Mode() string { return "bearer" }

func (b *BearerCredentials) Apply(req *http.Request) {
	if req.Header.Get("Authorization") != "" {
		return
	}
	if token := store.GetString(b.kv, store.KeyToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (b *BearerCredentials) Jar() http.CookieJar { return nil }

func (b *BearerCredentials) RefreshBody() any {
	rt := store.GetString(b.kv, store.KeyRefreshToken)
	if rt == "" {
		return nil
	}
	return map[string]string{"refresh_token": rt}
}

func (b *BearerCredentials) Save(token, refreshToken string) error {
	if token != "" {
		if err := b.kv.Set(store.KeyToken, token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
	}
	if refreshToken != "" {
		if err := b.kv.Set(store.KeyRefreshToken, refreshToken); err != nil {
			return fmt.Errorf("failed to save refresh token: %w", err)
		}
	}
	return nil
}

func (b *BearerCredentials) Clear() error {
	return store.ClearSession(b.kv)
}

// =============================================================================
// COOKIE
// =============================================================================

// persistedCookie is the on-disk form of a jar entry. A zero Expires marks a
// session cookie.
type persistedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

func (p persistedCookie) expired(now time.Time) bool {
	return !p.Expires.IsZero() && !p.Expires.After(now)
}

func cookieKey(name, value string) string { return name + "=" + value }

// CookieCredentials relies on httpOnly session cookies set by the server.
// The jar is persisted to the store so a session survives process restarts.
type CookieCredentials struct {
	mu      sync.Mutex
	kv      store.KV
	jar     *cookiejar.Jar
	scopes  []*url.URL // URLs whose cookies are persisted
	persist bool

	// attrs keeps the attributes the jar does not report back, by cookieKey.
	attrs map[string]persistedCookie
	now   func() time.Time
}

// NewCookieCredentials builds a jar for baseURL and restores persisted cookies.
func NewCookieCredentials(kv store.KV, baseURL string) (*CookieCredentials, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	refresh := *base
	refresh.Path = base.Path + "/auth/refresh"
	root := *base
	root.Path = base.Path + "/"

	c := &CookieCredentials{
		kv:     kv,
		scopes: []*url.URL{&root, &refresh},
		attrs:  make(map[string]persistedCookie),
		now:    time.Now,
	}
	if c.jar, err = newJar(); err != nil {
		return nil, err
	}
	c.restore()
	c.persist = true
	return c, nil
}

func newJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}

func (c *CookieCredentials) Mode() string { return "cookie" }

// Apply is a no-op: the HTTP client sends jar cookies itself.
func (c *CookieCredentials) Apply(req *http.Request) {}

func (c *CookieCredentials) Jar() http.CookieJar { return c }

func (c *CookieCredentials) RefreshBody() any { return nil }

// Save is a no-op: cookie sessions arrive as Set-Cookie headers.
func (c *CookieCredentials) Save(token, refreshToken string) error { return nil }

// SetCookies implements http.CookieJar and persists the result.
func (c *CookieCredentials) SetCookies(u *url.URL, cookies []*http.Cookie) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jar.SetCookies(u, cookies)
	now := c.now()
	for _, ck := range cookies {
		c.recordLocked(ck, now)
	}
	if c.persist {
		c.saveLocked()
	}
}

// Cookies implements http.CookieJar.
func (c *CookieCredentials) Cookies(u *url.URL) []*http.Cookie {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jar.Cookies(u)
}

// HasSession reports whether any cookie is held for the API.
func (c *CookieCredentials) HasSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.scopes {
		if len(c.jar.Cookies(u)) > 0 {
			return true
		}
	}
	return false
}

// recordLocked remembers the attributes of a cookie the server set.
func (c *CookieCredentials) recordLocked(ck *http.Cookie, now time.Time) {
	for key, prev := range c.attrs {
		if prev.Name == ck.Name && prev.Path == ck.Path && prev.Domain == ck.Domain {
			delete(c.attrs, key)
		}
	}
	if ck.MaxAge < 0 || (!ck.Expires.IsZero() && !ck.Expires.After(now)) {
		return
	}
	p := persistedCookie{
		Name:     ck.Name,
		Value:    ck.Value,
		Path:     ck.Path,
		Domain:   ck.Domain,
		Secure:   ck.Secure,
		HttpOnly: ck.HttpOnly,
	}
	switch {
	case ck.MaxAge > 0:
		p.Expires = now.Add(time.Duration(ck.MaxAge) * time.Second).UTC()
	case !ck.Expires.IsZero():
		p.Expires = ck.Expires.UTC()
	}
	c.attrs[cookieKey(ck.Name, ck.Value)] = p
}

func (c *CookieCredentials) Clear() error {
	jar, err := newJar()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.jar = jar
	c.attrs = make(map[string]persistedCookie)
	c.mu.Unlock()
	logging.AuthDebug("Cookie jar cleared")
	return store.ClearSession(c.kv)
}

// saveLocked writes every cookie visible to the API scopes. A cookie seen in
// an earlier scope is not repeated for a later one.
func (c *CookieCredentials) saveLocked() {
	live := make(map[string]persistedCookie)
	var out []persistedCookie
	for _, u := range c.scopes {
		for _, ck := range c.jar.Cookies(u) {
			key := cookieKey(ck.Name, ck.Value)
			if _, ok := live[key]; ok {
				continue
			}
			p, ok := c.attrs[key]
			if !ok {
				p = persistedCookie{Name: ck.Name, Value: ck.Value}
			}
			if p.Path == "" {
				p.Path = u.Path
			}
			live[key] = p
			out = append(out, p)
		}
	}
	// Secure cookies are invisible to plain http scopes; keep what is still
	// recorded and unexpired.
	now := c.now()
	for key, p := range c.attrs {
		if _, ok := live[key]; ok || !p.Secure || p.expired(now) {
			continue
		}
		live[key] = p
		out = append(out, p)
	}
	c.attrs = live

	if len(out) == 0 {
		if err := c.kv.Remove(store.KeyCookies); err != nil {
			logging.AuthWarn("Failed to remove persisted cookies: %v", err)
		}
		return
	}
	data, err := json.Marshal(out)
	if err != nil {
		logging.AuthWarn("Failed to encode cookies: %v", err)
		return
	}
	if err := c.kv.Set(store.KeyCookies, string(data)); err != nil {
		logging.AuthWarn("Failed to persist cookies: %v", err)
	}
}

func (c *CookieCredentials) restore() {
	raw := store.GetString(c.kv, store.KeyCookies)
	if raw == "" {
		return
	}
	var saved []persistedCookie
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		logging.AuthWarn("Ignoring unreadable persisted cookies: %v", err)
		return
	}

	root := c.scopes[0]
	now := c.now()
	restored := 0
	for _, p := range saved {
		if p.expired(now) {
			continue
		}
		c.jar.SetCookies(root, []*http.Cookie{{
			Name:     p.Name,
			Value:    p.Value,
			Path:     p.Path,
			Domain:   p.Domain,
			Expires:  p.Expires,
			Secure:   p.Secure,
			HttpOnly: p.HttpOnly,
		}})
		c.attrs[cookieKey(p.Name, p.Value)] = p
		restored++
	}
	logging.AuthDebug("Restored %d of %d persisted cookies", restored, len(saved))
}

// NewCredentials builds the strategy named by mode.
func NewCredentials(mode string, kv store.KV, baseURL string) (Credentials, error) {
	switch mode {
	case "", "cookie":
		return NewCookieCredentials(kv, baseURL)
	case "bearer":
		return NewBearerCredentials(kv), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q (want cookie or bearer)", mode)
	}
}
