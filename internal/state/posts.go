package state

import (
	"context"
	"sync"

	"critiqal/internal/api"
	"critiqal/internal/logging"
	"critiqal/internal/types"
)

// DefaultFeedLimit is the page size of the feed.
const DefaultFeedLimit = 50

// PostsAPI is the subset of the posts service the feed needs.
type PostsAPI interface {
	Recent(ctx context.Context, limit int) ([]types.Post, error)
	Create(ctx context.Context, req types.CreatePostRequest) (*types.Post, error)
	Update(ctx context.Context, id string, req types.UpdatePostRequest) (*types.Post, error)
	Delete(ctx context.Context, id string) error
	Like(ctx context.Context, id string) (*types.Post, error)
	Unlike(ctx context.Context, id string) (*types.Post, error)
}

// PostsState is the feed.
type PostsState struct {
	Posts     []types.Post
	IsLoading bool
	Error     string
	HasMore   bool
	Limit     int
}

// PostsStore caches the recent-posts feed. Async operations follow a
// three-phase contract: loading, call, then data or error. On failure the
// previous posts stay in place.
type PostsStore struct {
	store *Writable[PostsState]
	api   PostsAPI
	limit int

	// gen increments on every fetch start and on Clear. A fetch whose
	// generation is no longer current is discarded on completion.
	genMu sync.Mutex
	gen   uint64

	Loading Readable[bool]
	Error   Readable[string]
	List    Readable[[]types.Post]
}

// NewPostsStore returns an empty feed backed by postsAPI.
func NewPostsStore(postsAPI PostsAPI, limit int) *PostsStore {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	w := NewWritable(initialPosts(limit))
	return &PostsStore{
		store:   w,
		api:     postsAPI,
		limit:   limit,
		Loading: Derive[PostsState](w, func(s PostsState) bool { return s.IsLoading }),
		Error:   Derive[PostsState](w, func(s PostsState) string { return s.Error }),
		List:    Derive[PostsState](w, func(s PostsState) []types.Post { return s.Posts }),
	}
}

func initialPosts(limit int) PostsState {
	return PostsState{Posts: []types.Post{}, HasMore: true, Limit: limit}
}

// Get returns the current feed.
func (p *PostsStore) Get() PostsState { return p.store.Get() }

// Subscribe observes the feed.
func (p *PostsStore) Subscribe(fn func(PostsState)) func() { return p.store.Subscribe(fn) }

func (p *PostsStore) nextGen() uint64 {
	p.genMu.Lock()
	defer p.genMu.Unlock()
	p.gen++
	return p.gen
}

func (p *PostsStore) current(gen uint64) bool {
	p.genMu.Lock()
	defer p.genMu.Unlock()
	return p.gen == gen
}

// FetchRecent loads the newest posts. limit <= 0 uses the store's limit.
func (p *PostsStore) FetchRecent(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = p.limit
	}
	gen := p.nextGen()
	p.setLoading()

	posts, err := p.api.Recent(ctx, limit)
	if !p.current(gen) {
		logging.StateDebug("Discarding stale feed fetch (generation %d)", gen)
		return err
	}
	if err != nil {
		p.fail(err)
		return err
	}
	p.replace(posts, limit)
	return nil
}

// Create publishes a post, then reloads the feed.
func (p *PostsStore) Create(ctx context.Context, req types.CreatePostRequest) (*types.Post, error) {
	gen := p.nextGen()
	p.setLoading()

	created, err := p.api.Create(ctx, req)
	if err != nil {
		if p.current(gen) {
			p.fail(err)
		}
		return nil, err
	}

	posts, err := p.api.Recent(ctx, p.limit)
	if !p.current(gen) {
		return created, nil
	}
	if err != nil {
		p.fail(err)
		return created, err
	}
	p.replace(posts, p.limit)
	return created, nil
}

// Update edits a post and replaces its snapshot in the feed.
func (p *PostsStore) Update(ctx context.Context, id string, req types.UpdatePostRequest) (*types.Post, error) {
	updated, err := p.api.Update(ctx, id, req)
	if err != nil {
		p.setError(err)
		return nil, err
	}
	if updated != nil {
		p.replacePost(*updated)
	}
	return updated, nil
}

// Delete removes a post on the server, then exactly that post from the feed.
func (p *PostsStore) Delete(ctx context.Context, id string) error {
	if err := p.api.Delete(ctx, id); err != nil {
		p.setError(err)
		return err
	}
	p.store.Update(func(s PostsState) PostsState {
		kept := make([]types.Post, 0, len(s.Posts))
		for _, post := range s.Posts {
			if post.ID != id {
				kept = append(kept, post)
			}
		}
		s.Posts = kept
		return s
	})
	return nil
}

// Like likes a post and stores the server's snapshot of it.
func (p *PostsStore) Like(ctx context.Context, id string) (*types.Post, error) {
	return p.react(ctx, id, p.api.Like)
}

// Unlike removes a like and stores the server's snapshot of the post.
func (p *PostsStore) Unlike(ctx context.Context, id string) (*types.Post, error) {
	return p.react(ctx, id, p.api.Unlike)
}

func (p *PostsStore) react(ctx context.Context, id string, call func(context.Context, string) (*types.Post, error)) (*types.Post, error) {
	post, err := call(ctx, id)
	if err != nil {
		p.setError(err)
		return nil, err
	}
	if post != nil {
		p.replacePost(*post)
	}
	return post, nil
}

// AddToTop prepends a post.
func (p *PostsStore) AddToTop(post types.Post) {
	p.store.Update(func(s PostsState) PostsState {
		posts := make([]types.Post, 0, len(s.Posts)+1)
		posts = append(posts, post)
		s.Posts = append(posts, s.Posts...)
		return s
	})
}

// Clear resets the feed and invalidates in-flight fetches.
func (p *PostsStore) Clear() {
	p.nextGen()
	p.store.Set(initialPosts(p.limit))
}

func (p *PostsStore) setLoading() {
	p.store.Update(func(s PostsState) PostsState {
		s.IsLoading = true
		s.Error = ""
		return s
	})
}

func (p *PostsStore) fail(err error) {
	msg := api.Message(err)
	logging.StateWarn("Feed operation failed: %s", msg)
	p.store.Update(func(s PostsState) PostsState {
		s.IsLoading = false
		s.Error = msg
		return s
	})
}

func (p *PostsStore) setError(err error) {
	msg := api.Message(err)
	p.store.Update(func(s PostsState) PostsState {
		s.Error = msg
		return s
	})
}

func (p *PostsStore) replace(posts []types.Post, limit int) {
	if posts == nil {
		posts = []types.Post{}
	}
	p.store.Update(func(s PostsState) PostsState {
		s.Posts = posts
		s.IsLoading = false
		s.HasMore = len(posts) >= limit
		return s
	})
}

// replacePost swaps in a new snapshot of a post already in the feed.
func (p *PostsStore) replacePost(post types.Post) {
	p.store.Update(func(s PostsState) PostsState {
		posts := make([]types.Post, len(s.Posts))
		copy(posts, s.Posts)
		for i := range posts {
			if posts[i].ID == post.ID {
				posts[i] = post
			}
		}
		s.Posts = posts
		return s
	})
}
