package service

import (
	"context"
	"net/http"

	"critiqal/internal/api"
	"critiqal/internal/state"
	"critiqal/internal/types"
)

// PostsService calls the post endpoints. It satisfies state.PostsAPI.
type PostsService struct {
	t Transport
}

var _ state.PostsAPI = (*PostsService)(nil)

// NewPostsService creates a PostsService.
func NewPostsService(t Transport) *PostsService {
	return &PostsService{t: t}
}

// Recent returns the newest posts, newest first.
func (p *PostsService) Recent(ctx context.Context, limit int) ([]types.Post, error) {
	if limit <= 0 {
		limit = state.DefaultFeedLimit
	}
	return api.Get[[]types.Post](ctx, p.t, withQuery("/posts/recent", map[string]string{"limit": itoa(limit)}))
}

// List returns one page of posts. Pages start at 1.
func (p *PostsService) List(ctx context.Context, page, limit int) (types.PaginatedResponse[types.Post], error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	path := withQuery("/posts", map[string]string{"page": itoa(page), "limit": itoa(limit)})
	return api.Get[types.PaginatedResponse[types.Post]](ctx, p.t, path)
}

// Get fetches one post.
func (p *PostsService) Get(ctx context.Context, id string) (*types.Post, error) {
	return api.Get[*types.Post](ctx, p.t, "/posts/"+escape(id))
}

// ByUser returns the posts written by username.
func (p *PostsService) ByUser(ctx context.Context, username string) ([]types.Post, error) {
	return api.Get[[]types.Post](ctx, p.t, "/posts/users/"+escape(username))
}

// Create publishes a post.
func (p *PostsService) Create(ctx context.Context, req types.CreatePostRequest) (*types.Post, error) {
	return api.Post[*types.Post](ctx, p.t, "/posts", req)
}

// Update edits a post.
func (p *PostsService) Update(ctx context.Context, id string, req types.UpdatePostRequest) (*types.Post, error) {
	return api.Put[*types.Post](ctx, p.t, "/posts/"+escape(id), req)
}

// Delete removes a post.
func (p *PostsService) Delete(ctx context.Context, id string) error {
	_, err := p.t.Do(ctx, http.MethodDelete, "/posts/"+escape(id), nil, nil)
	return err
}

// Like likes a post and returns its new snapshot.
func (p *PostsService) Like(ctx context.Context, id string) (*types.Post, error) {
	return api.Post[*types.Post](ctx, p.t, "/posts/"+escape(id)+"/like", struct{}{})
}

// Unlike removes a like and returns the post's new snapshot.
func (p *PostsService) Unlike(ctx context.Context, id string) (*types.Post, error) {
	return api.Delete[*types.Post](ctx, p.t, "/posts/"+escape(id)+"/like")
}
