package service

import (
	"context"
	"fmt"

	"critiqal/internal/types"

	"golang.org/x/sync/errgroup"
)

// Profile is a user together with their posts.
type Profile struct {
	User  *types.User
	Posts []types.Post
}

// LoadProfile fetches a user and their posts concurrently. A failed post
// lookup still returns the user with no posts; a failed user lookup fails
// the whole load.
func LoadProfile(ctx context.Context, users *UsersService, posts *PostsService, username string) (*Profile, error) {
	var (
		profile  Profile
		postsErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := users.Get(gctx, username)
		if err != nil {
			return fmt.Errorf("failed to load user %s: %w", username, err)
		}
		profile.User = user
		return nil
	})
	g.Go(func() error {
		list, err := posts.ByUser(gctx, username)
		if err != nil {
			postsErr = err
			return nil
		}
		profile.Posts = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if postsErr != nil || profile.Posts == nil {
		profile.Posts = []types.Post{}
	}
	return &profile, nil
}
