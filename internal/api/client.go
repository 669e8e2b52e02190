// Package api implements the authenticated HTTP transport used by every
// critiqal service: credential attachment, response classification,
// transparent session refresh on 401, transient retries and uploads.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"critiqal/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Views the Navigator understands.
const (
	ViewSignIn = "sign-in"
	ViewSignUp = "sign-up"
)

// Navigator is the UI boundary. It is asked to show the sign-in view after
// a terminal 401.
type Navigator interface {
	CurrentView() string
	Navigate(view string)
}

// SessionSink receives the terminal-401 side effect on the session state.
type SessionSink interface {
	ClearAuthState()
}

// Doer issues JSON requests. *Client implements it.
type Doer interface {
	Do(ctx context.Context, method, path string, body any, headers http.Header) (json.RawMessage, error)
}

// Paths whose 401 means "bad credentials", never "expired session".
var noRefreshPaths = map[string]bool{
	"/auth/sign-in":  true,
	"/auth/sign-up":  true,
	"/auth/refresh":  true,
	"/auth/sign-out": true,
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration // zero = none; the caller's context governs
	Credentials Credentials
	Retry       RetryPolicy
	Session     SessionSink
	Navigator   Navigator
	// Transport overrides the HTTP round tripper (tests).
	Transport http.RoundTripper
}

// Stats counts recovery activity.
type Stats struct {
	RefreshAttempts  int64
	AuthRetries      int64
	TransientRetries int64
}

// Client is the Transport. It is safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	creds    Credentials
	retry    RetryPolicy
	session  SessionSink
	nav      Navigator
	refreshG singleflight.Group

	refreshAttempts  atomic.Int64
	authRetries      atomic.Int64
	transientRetries atomic.Int64
}

// NewClient creates a Client. BaseURL must be absolute.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: must be absolute", opts.BaseURL)
	}
	if opts.Credentials == nil {
		return nil, errors.New("credentials strategy is required")
	}

	hc := &http.Client{
		Timeout:   opts.Timeout,
		Jar:       opts.Credentials.Jar(),
		Transport: opts.Transport,
	}

	logging.APIDebug("API client created: base=%s auth=%s retries=%d", base, opts.Credentials.Mode(), opts.Retry.MaxRetries)
	return &Client{
		baseURL: base,
		http:    hc,
		creds:   opts.Credentials,
		retry:   opts.Retry,
		session: opts.Session,
		nav:     opts.Navigator,
	}, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Credentials returns the credential strategy.
func (c *Client) Credentials() Credentials { return c.creds }

// Stats returns a snapshot of the recovery counters.
func (c *Client) Stats() Stats {
	return Stats{
		RefreshAttempts:  c.refreshAttempts.Load(),
		AuthRetries:      c.authRetries.Load(),
		TransientRetries: c.transientRetries.Load(),
	}
}

// request is one logical call. body builds a fresh reader per attempt.
type request struct {
	method  string
	path    string
	id      string
	headers http.Header
	body    func() (io.Reader, int64, string)
}

// Do sends a JSON request to path (relative to the base URL) and returns the
// raw JSON body. A nil body sends no payload. Caller headers override defaults.
func (c *Client) Do(ctx context.Context, method, path string, body any, headers http.Header) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	req := request{
		method:  method,
		path:    path,
		id:      uuid.NewString(),
		headers: headers,
		body: func() (io.Reader, int64, string) {
			if payload == nil {
				return nil, 0, "application/json"
			}
			return bytes.NewReader(payload), int64(len(payload)), "application/json"
		},
	}
	return c.execute(ctx, req)
}

// execute runs a request through the 401 refresh-and-retry-once flow.
func (c *Client) execute(ctx context.Context, req request) (json.RawMessage, error) {
	status, body, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && !noRefreshPaths[req.path] {
		logging.AuthDebug("401 on %s %s, attempting refresh", req.method, req.path)
		if !c.Refresh(ctx) {
			// The caller gave up; the stored credential may still be good.
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c.expire()
			return nil, ErrAuthExpired
		}

		c.authRetries.Add(1)
		status, body, err = c.send(ctx, req)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			logging.AuthWarn("Retry of %s %s still unauthorized", req.method, req.path)
			c.expire()
			return nil, ErrAuthExpired
		}
	}

	return classify(status, body)
}

// send performs one attempt plus transient retries for network failures.
func (c *Client) send(ctx context.Context, req request) (int, []byte, error) {
	for attempt := 0; ; attempt++ {
		status, body, err := c.once(ctx, req)
		if err == nil {
			return status, body, nil
		}

		var netErr *NetworkError
		if !errors.As(err, &netErr) || ctx.Err() != nil || attempt >= c.retry.MaxRetries {
			return 0, nil, err
		}

		c.transientRetries.Add(1)
		logging.APIWarn("%s %s failed (%v), retry %d/%d in %v", req.method, req.path, netErr.Err, attempt+1, c.retry.MaxRetries, c.retry.Delay)
		if werr := c.retry.wait(ctx); werr != nil {
			return 0, nil, err
		}
	}
}

// once issues a single HTTP round trip and reads the whole body.
func (c *Client) once(ctx context.Context, req request) (int, []byte, error) {
	target := c.baseURL + req.path
	reader, length, contentType := req.body()

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	if reader != nil {
		httpReq.ContentLength = length
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", req.id)
	for k, vs := range req.headers {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	c.creds.Apply(httpReq)

	timer := logging.StartTimer(logging.CategoryAPI, req.method+" "+req.path)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		timer.Stop()
		return 0, nil, &NetworkError{Method: req.method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	elapsed := timer.Stop()
	if err != nil {
		return 0, nil, &NetworkError{Method: req.method, URL: target, Err: err}
	}
	logging.APIDebug("%s %s -> %d (%d bytes, %v) id=%s", req.method, req.path, resp.StatusCode, len(body), elapsed, req.id)
	return resp.StatusCode, body, nil
}

// classify turns a completed response into a result.
func classify(status int, body []byte) (json.RawMessage, error) {
	if status < 200 || status > 299 {
		httpErr := newHTTPError(status, body)
		logging.APIDebug("HTTP %d: %s", status, httpErr.Message)
		return nil, httpErr
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(trimmed) {
		return nil, &ParseError{Status: status, Err: errors.New("body is not JSON")}
	}
	return json.RawMessage(trimmed), nil
}

// expire performs the terminal-401 side effects.
func (c *Client) expire() {
	logging.Auth("Session expired; clearing credentials")
	if err := c.creds.Clear(); err != nil {
		logging.AuthWarn("Failed to clear credentials: %v", err)
	}
	if c.session != nil {
		c.session.ClearAuthState()
	}
	if c.nav == nil {
		return
	}
	switch c.nav.CurrentView() {
	case ViewSignIn, ViewSignUp:
	default:
		c.nav.Navigate(ViewSignIn)
	}
}

// refreshTimeout bounds a shared refresh, which runs detached from the
// caller that started it.
const refreshTimeout = 30 * time.Second

// Refresh obtains a new credential with POST /auth/refresh. Concurrent
// callers share one attempt, which no single caller's cancellation can
// abort. A caller whose ctx ends first stops waiting and gets false.
// Any failure yields false.
func (c *Client) Refresh(ctx context.Context) bool {
	ch := c.refreshG.DoChan("refresh", func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.refresh(rctx), nil
	})
	select {
	case res := <-ch:
		return res.Val.(bool)
	case <-ctx.Done():
		logging.AuthDebug("Caller stopped waiting for refresh: %v", ctx.Err())
		return false
	}
}

func (c *Client) refresh(ctx context.Context) bool {
	c.refreshAttempts.Add(1)

	var payload []byte
	if body := c.creds.RefreshBody(); body != nil {
		payload, _ = json.Marshal(body)
	}
	req := request{
		method: http.MethodPost,
		path:   "/auth/refresh",
		id:     uuid.NewString(),
		body: func() (io.Reader, int64, string) {
			if payload == nil {
				return nil, 0, "application/json"
			}
			return bytes.NewReader(payload), int64(len(payload)), "application/json"
		},
	}

	// A refresh is a single attempt: no transient retries.
	status, body, err := c.once(ctx, req)
	if err != nil {
		logging.AuthWarn("Refresh failed: %v", err)
		return false
	}
	if status < 200 || status > 299 {
		logging.AuthDebug("Refresh rejected with %d", status)
		return false
	}

	var tokens struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &tokens); err != nil {
			logging.AuthDebug("Refresh body not JSON, relying on cookies: %v", err)
		}
	}
	if err := c.creds.Save(tokens.Token, tokens.RefreshToken); err != nil {
		logging.AuthWarn("Failed to persist refreshed credentials: %v", err)
		return false
	}
	logging.Auth("Session refreshed")
	return true
}

// =============================================================================
// TYPED HELPERS
// =============================================================================

// Decode unmarshals raw into T. JSON null yields the zero T.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &ParseError{Status: http.StatusOK, Err: err}
	}
	return out, nil
}

func call[T any](ctx context.Context, d Doer, method, path string, body any) (T, error) {
	raw, err := d.Do(ctx, method, path, body, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](raw)
}

// Get issues GET path and decodes the response into T.
func Get[T any](ctx context.Context, d Doer, path string) (T, error) {
	return call[T](ctx, d, http.MethodGet, path, nil)
}

// Post issues POST path with a JSON body and decodes the response into T.
func Post[T any](ctx context.Context, d Doer, path string, body any) (T, error) {
	return call[T](ctx, d, http.MethodPost, path, body)
}

// Put issues PUT path with a JSON body and decodes the response into T.
func Put[T any](ctx context.Context, d Doer, path string, body any) (T, error) {
	return call[T](ctx, d, http.MethodPut, path, body)
}

// Patch issues PATCH path with a JSON body and decodes the response into T.
func Patch[T any](ctx context.Context, d Doer, path string, body any) (T, error) {
	return call[T](ctx, d, http.MethodPatch, path, body)
}

// Delete issues DELETE path and decodes the response into T.
func Delete[T any](ctx context.Context, d Doer, path string) (T, error) {
	return call[T](ctx, d, http.MethodDelete, path, nil)
}
