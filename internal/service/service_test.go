package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"critiqal/internal/api"
	"critiqal/internal/state"
	"critiqal/internal/store"

	"github.com/stretchr/testify/require"
)

// hit is one request seen by the fake backend.
type hit struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

// backend is a fake critiqal API. Handlers are keyed by "METHOD /path".
type backend struct {
	mu       sync.Mutex
	hits     []hit
	handlers map[string]http.HandlerFunc
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.hits = append(b.hits, hit{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Body:   string(body),
	})
	h := b.handlers[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	if h == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	h(w, r)
}

func (b *backend) requests() []hit {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]hit(nil), b.hits...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respond(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { writeJSON(w, status, v) }
}

type fakeNavigator struct {
	mu      sync.Mutex
	current string
	visits  []string
}

func (n *fakeNavigator) CurrentView() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *fakeNavigator) Navigate(view string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = view
	n.visits = append(n.visits, view)
}

type fixture struct {
	backend *backend
	kv      *store.MemoryStore
	session *state.AuthStore
	nav     *fakeNavigator
	client  *api.Client
	svc     *Services
}

func newFixture(t *testing.T, handlers map[string]http.HandlerFunc) *fixture {
	t.Helper()
	b := &backend{handlers: handlers}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	f := &fixture{
		backend: b,
		kv:      store.NewMemoryStore(),
		session: state.NewAuthStore(),
		nav:     &fakeNavigator{current: "feed"},
	}
	creds := api.NewBearerCredentials(f.kv)
	client, err := api.NewClient(api.Options{
		BaseURL:     srv.URL + "/api",
		Credentials: creds,
		Retry:       api.RetryPolicy{MaxRetries: 1, Delay: time.Millisecond},
		Session:     f.session,
		Navigator:   f.nav,
	})
	require.NoError(t, err)
	f.client = client
	f.svc = New(Options{
		Transport:   client,
		Credentials: creds,
		KV:          f.kv,
		Session:     f.session,
		Navigator:   f.nav,
	})
	return f
}

func TestWithQueryEncodes(t *testing.T) {
	require.Equal(t, "/users/search?limit=5&q=a+b%26c", withQuery("/users/search", map[string]string{"q": "a b&c", "limit": "5"}))
	require.Equal(t, "/users", withQuery("/users", nil))
	require.Equal(t, "a%2Fb", escape("a/b"))
}
