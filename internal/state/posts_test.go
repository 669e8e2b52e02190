package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"critiqal/internal/api"
	"critiqal/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakePosts struct {
	mu       sync.Mutex
	recent   []types.Post
	err      error
	calls    []int
	gate     map[int]chan struct{} // call index -> release
	deleted  []string
	snapshot map[string]types.Post
}

func (f *fakePosts) Recent(ctx context.Context, limit int) ([]types.Post, error) {
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, limit)
	gate := f.gate[idx]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	n := limit
	if n > len(f.recent) {
		n = len(f.recent)
	}
	out := make([]types.Post, n)
	copy(out, f.recent[:n])
	return out, nil
}

func (f *fakePosts) Create(ctx context.Context, req types.CreatePostRequest) (*types.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p := types.Post{ID: "new", Description: req.Description}
	f.recent = append([]types.Post{p}, f.recent...)
	return &p, nil
}

func (f *fakePosts) Update(ctx context.Context, id string, req types.UpdatePostRequest) (*types.Post, error) {
	return &types.Post{ID: id, Description: req.Description}, nil
}

func (f *fakePosts) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePosts) Like(ctx context.Context, id string) (*types.Post, error) {
	p := f.snapshot[id]
	p.IsLiked = true
	p.LikesCount++
	return &p, nil
}

func (f *fakePosts) Unlike(ctx context.Context, id string) (*types.Post, error) {
	p := f.snapshot[id]
	p.IsLiked = false
	return &p, nil
}

func posts(ids ...string) []types.Post {
	out := make([]types.Post, len(ids))
	for i, id := range ids {
		out[i] = types.Post{ID: id}
	}
	return out
}

func ids(ps []types.Post) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestFetchRecentReplacesListAndComputesHasMore(t *testing.T) {
	tests := []struct {
		name        string
		available   []types.Post
		limit       int
		wantHasMore bool
	}{
		{"exactly limit", posts("a", "b"), 2, true},
		{"fewer than limit", posts("a", "b"), 3, false},
		{"empty", nil, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakePosts{recent: tt.available}
			s := NewPostsStore(fake, 50)

			require.NoError(t, s.FetchRecent(context.Background(), tt.limit))

			got := s.Get()
			require.Equal(t, ids(tt.available), ids(got.Posts))
			require.Equal(t, tt.wantHasMore, got.HasMore)
			require.False(t, got.IsLoading)
			require.Equal(t, []int{tt.limit}, fake.calls)
		})
	}
}

func TestFetchRecentThreePhases(t *testing.T) {
	fake := &fakePosts{recent: posts("a")}
	s := NewPostsStore(fake, 50)

	type phase struct {
		loading bool
		n       int
		err     string
	}
	var phases []phase
	s.Subscribe(func(st PostsState) {
		phases = append(phases, phase{st.IsLoading, len(st.Posts), st.Error})
	})

	require.NoError(t, s.FetchRecent(context.Background(), 0))

	want := []phase{{false, 0, ""}, {true, 0, ""}, {false, 1, ""}}
	if diff := cmp.Diff(want, phases, cmp.AllowUnexported(phase{})); diff != "" {
		t.Errorf("phases mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []int{50}, fake.calls, "zero limit uses the store limit")
}

func TestFetchFailureKeepsPriorPosts(t *testing.T) {
	fake := &fakePosts{recent: posts("a", "b")}
	s := NewPostsStore(fake, 50)
	require.NoError(t, s.FetchRecent(context.Background(), 10))

	fake.err = &api.HTTPError{Status: 500, Message: "database unavailable"}
	err := s.FetchRecent(context.Background(), 10)
	require.Error(t, err)

	got := s.Get()
	require.Equal(t, []string{"a", "b"}, ids(got.Posts))
	require.Equal(t, "database unavailable", got.Error)
	require.False(t, got.IsLoading)
	require.Equal(t, "database unavailable", s.Error.Get())
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	fake := &fakePosts{recent: posts("old"), gate: map[int]chan struct{}{0: release}}
	s := NewPostsStore(fake, 50)

	slow := make(chan error, 1)
	go func() { slow <- s.FetchRecent(context.Background(), 10) }()

	// Wait until the slow fetch is parked inside the API call.
	require.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return len(fake.calls) == 1
	}, time.Second, 5*time.Millisecond)

	fake.mu.Lock()
	fake.recent = posts("new1", "new2")
	fake.mu.Unlock()
	require.NoError(t, s.FetchRecent(context.Background(), 10))
	require.Equal(t, []string{"new1", "new2"}, ids(s.Get().Posts))

	// The slow fetch now returns the same data source, but its result must be ignored.
	fake.mu.Lock()
	fake.recent = posts("stale")
	fake.mu.Unlock()
	close(release)
	require.NoError(t, <-slow)

	require.Equal(t, []string{"new1", "new2"}, ids(s.Get().Posts))
	require.False(t, s.Get().IsLoading)
}

func TestDeleteRemovesExactlyMatchingPost(t *testing.T) {
	fake := &fakePosts{recent: posts("a", "b", "c", "d")}
	s := NewPostsStore(fake, 50)
	require.NoError(t, s.FetchRecent(context.Background(), 10))

	require.NoError(t, s.Delete(context.Background(), "c"))

	require.Equal(t, []string{"a", "b", "d"}, ids(s.List.Get()))
	require.Equal(t, []string{"c"}, fake.deleted)
}

func TestDeleteFailureKeepsList(t *testing.T) {
	fake := &fakePosts{recent: posts("a", "b")}
	s := NewPostsStore(fake, 50)
	require.NoError(t, s.FetchRecent(context.Background(), 10))

	fake.err = &api.HTTPError{Status: 403, Message: "forbidden"}
	require.Error(t, s.Delete(context.Background(), "a"))
	require.Equal(t, []string{"a", "b"}, ids(s.List.Get()))
	require.Equal(t, "forbidden", s.Get().Error)
}

func TestCreateRefetches(t *testing.T) {
	fake := &fakePosts{recent: posts("a")}
	s := NewPostsStore(fake, 50)

	created, err := s.Create(context.Background(), types.CreatePostRequest{Description: "hello"})
	require.NoError(t, err)
	require.Equal(t, "new", created.ID)
	require.Equal(t, []string{"new", "a"}, ids(s.List.Get()))
	require.Equal(t, []int{50}, fake.calls)
	require.False(t, s.Loading.Get())
}

func TestCreateFailureSetsError(t *testing.T) {
	fake := &fakePosts{err: errors.New("offline")}
	s := NewPostsStore(fake, 50)

	_, err := s.Create(context.Background(), types.CreatePostRequest{Description: "x"})
	require.Error(t, err)
	require.Equal(t, "offline", s.Get().Error)
	require.False(t, s.Get().IsLoading)
}

func TestLikeReplacesSnapshot(t *testing.T) {
	fake := &fakePosts{
		recent:   []types.Post{{ID: "a", LikesCount: 1}, {ID: "b"}},
		snapshot: map[string]types.Post{"a": {ID: "a", LikesCount: 1}},
	}
	s := NewPostsStore(fake, 50)
	require.NoError(t, s.FetchRecent(context.Background(), 10))
	before := s.List.Get()

	_, err := s.Like(context.Background(), "a")
	require.NoError(t, err)

	after := s.List.Get()
	require.True(t, after[0].IsLiked)
	require.Equal(t, 2, after[0].LikesCount)
	require.False(t, before[0].IsLiked, "previous snapshots are never mutated")

	_, err = s.Unlike(context.Background(), "a")
	require.NoError(t, err)
	require.False(t, s.List.Get()[0].IsLiked)
}

func TestUpdateReplacesSnapshot(t *testing.T) {
	fake := &fakePosts{recent: posts("a", "b")}
	s := NewPostsStore(fake, 50)
	require.NoError(t, s.FetchRecent(context.Background(), 10))

	_, err := s.Update(context.Background(), "b", types.UpdatePostRequest{Description: "edited"})
	require.NoError(t, err)
	require.Equal(t, "edited", s.List.Get()[1].Description)
}

func TestAddToTopAndClear(t *testing.T) {
	s := NewPostsStore(&fakePosts{}, 0)
	require.Equal(t, DefaultFeedLimit, s.Get().Limit)
	require.True(t, s.Get().HasMore)

	s.AddToTop(types.Post{ID: "b"})
	s.AddToTop(types.Post{ID: "a"})
	require.Equal(t, []string{"a", "b"}, ids(s.List.Get()))

	s.Clear()
	if diff := cmp.Diff(initialPosts(DefaultFeedLimit), s.Get()); diff != "" {
		t.Errorf("clear mismatch (-want +got):\n%s", diff)
	}
}
