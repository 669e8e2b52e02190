package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"critiqal/internal/api"
	"critiqal/internal/logging"
	"critiqal/internal/types"
)

// DefaultSearchLimit caps Search when no limit is given.
const DefaultSearchLimit = 20

// UsersService reads user profiles.
type UsersService struct {
	t Transport
}

// NewUsersService creates a UsersService.
func NewUsersService(t Transport) *UsersService {
	return &UsersService{t: t}
}

// Get fetches a user by username or id.
func (u *UsersService) Get(ctx context.Context, identifier string) (*types.User, error) {
	return api.Get[*types.User](ctx, u.t, "/users/"+escape(identifier))
}

// List fetches every user.
func (u *UsersService) List(ctx context.Context) ([]types.User, error) {
	return api.Get[[]types.User](ctx, u.t, "/users")
}

// Search finds users matching query. Servers without a search endpoint
// answer 404; the full list is then filtered locally.
func (u *UsersService) Search(ctx context.Context, query string, limit int) ([]types.User, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	path := withQuery("/users/search", map[string]string{"q": query, "limit": itoa(limit)})

	users, err := api.Get[[]types.User](ctx, u.t, path)
	if err == nil {
		return users, nil
	}
	if !api.IsStatus(err, http.StatusNotFound) {
		return nil, err
	}

	logging.APIDebug("Search endpoint unavailable, filtering locally for %q", query)
	all, err := u.List(ctx)
	if err != nil {
		return nil, err
	}
	return filterUsers(all, query, limit), nil
}

// SearchByUsername finds users whose username matches.
func (u *UsersService) SearchByUsername(ctx context.Context, username string) ([]types.PublicUser, error) {
	return api.Get[[]types.PublicUser](ctx, u.t, "/users/search/"+escape(username))
}

func filterUsers(all []types.User, query string, limit int) []types.User {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]types.User, 0, limit)
	for _, user := range all {
		if len(out) == limit {
			break
		}
		if q == "" || matchesUser(user, q) {
			out = append(out, user)
		}
	}
	return out
}

func matchesUser(user types.User, q string) bool {
	for _, field := range []string{user.Username, user.FirstName, user.LastName, user.Email} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// UploadPhoto uploads a profile photo for the user as multipart field
// "photo". onProgress, when set, receives 0 to 100.
func (u *UsersService) UploadPhoto(ctx context.Context, identifier, filename string, content io.Reader, onProgress api.ProgressFunc) (*types.PhotoUploadResponse, error) {
	form := api.Form{
		Files: []api.FormFile{{Field: "photo", Filename: filename, Content: content}},
	}
	raw, err := u.t.Upload(ctx, "/users/"+escape(identifier)+"/photo", form, onProgress)
	if err != nil {
		return nil, err
	}
	resp, err := api.Decode[types.PhotoUploadResponse](raw)
	if err != nil {
		return nil, err
	}
	if resp.URL == "" {
		return nil, fmt.Errorf("upload of %s returned no url", filename)
	}
	logging.UploadDebug("Photo for %s stored at %s", identifier, resp.URL)
	return &resp, nil
}
