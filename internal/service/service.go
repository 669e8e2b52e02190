// Package service wraps the critiqal REST endpoints in typed calls and
// applies their results to the session and feed stores.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"critiqal/internal/api"
	"critiqal/internal/state"
	"critiqal/internal/store"
)

// Transport is what the services need from the HTTP layer. *api.Client
// implements it.
type Transport interface {
	api.Doer
	Upload(ctx context.Context, path string, form api.Form, onProgress api.ProgressFunc) (json.RawMessage, error)
}

// Options wires the services together.
type Options struct {
	Transport   Transport
	Credentials api.Credentials
	KV          store.KV
	Session     *state.AuthStore
	Navigator   api.Navigator
}

// Services is the full set of endpoint modules.
type Services struct {
	Auth  *AuthService
	Users *UsersService
	Posts *PostsService
}

// New builds every service from opts.
func New(opts Options) *Services {
	posts := NewPostsService(opts.Transport)
	users := NewUsersService(opts.Transport)
	return &Services{
		Auth:  NewAuthService(opts),
		Users: users,
		Posts: posts,
	}
}

// escape encodes one path segment.
func escape(segment string) string {
	return url.PathEscape(segment)
}

// withQuery appends encoded query parameters to path.
func withQuery(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return fmt.Sprintf("%s?%s", path, q.Encode())
}

func itoa(n int) string { return strconv.Itoa(n) }

// Profile loads a user and their posts.
func (s *Services) Profile(ctx context.Context, username string) (*Profile, error) {
	return LoadProfile(ctx, s.Users, s.Posts, username)
}
