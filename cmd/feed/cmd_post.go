package main

import (
	"errors"

	"critiqal/internal/api"
	"critiqal/internal/types"

	"github.com/spf13/cobra"
)

var (
	postTitle    string
	postPhotoURL string
)

// postCmd groups post commands
var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Read, publish and react to posts",
}

var postShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one post",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostShow,
}

var postCreateCmd = &cobra.Command{
	Use:   "create <text...>",
	Short: "Publish a post",
	Long: `Publishes a post and reloads the feed.

Example:
  feed post create "Golden hour at the pier" --photo-url /uploads/pier.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPostCreate,
}

var postEditCmd = &cobra.Command{
	Use:   "edit <id> <text...>",
	Short: "Edit a post",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runPostEdit,
}

var postDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a post",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostDelete,
}

var postLikeCmd = &cobra.Command{
	Use:   "like <id>",
	Short: "Like a post",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostLike,
}

var postUnlikeCmd = &cobra.Command{
	Use:   "unlike <id>",
	Short: "Remove your like from a post",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostUnlike,
}

func init() {
	postCreateCmd.Flags().StringVar(&postTitle, "title", "", "Post title")
	postCreateCmd.Flags().StringVar(&postPhotoURL, "photo-url", "", "URL of an uploaded photo")
	postEditCmd.Flags().StringVar(&postTitle, "title", "", "New title")
	postEditCmd.Flags().StringVar(&postPhotoURL, "photo-url", "", "New photo URL")

	postCmd.AddCommand(postShowCmd)
	postCmd.AddCommand(postCreateCmd)
	postCmd.AddCommand(postEditCmd)
	postCmd.AddCommand(postDeleteCmd)
	postCmd.AddCommand(postLikeCmd)
	postCmd.AddCommand(postUnlikeCmd)
	rootCmd.AddCommand(postCmd)
}

func runPostShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	post, err := app.services.Posts.Get(ctx, args[0])
	if err != nil {
		return app.notifyErr(err)
	}
	if post == nil {
		return app.notifyErr(errors.New("post not found"))
	}
	app.println(app.currentStyles().Post(*post))
	return nil
}

func runPostCreate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	created, err := app.stores.Posts.Create(ctx, types.CreatePostRequest{
		Description: joinArgs(args),
		Title:       postTitle,
		PhotoURL:    postPhotoURL,
	})
	if created == nil && err != nil {
		return app.notifyErr(err)
	}

	// A failed reload after a successful publish is only a warning.
	if created != nil {
		app.println(app.currentStyles().Post(*created))
	}
	app.stores.Notifications.Success("Post published.", 0)
	if err != nil {
		app.stores.Notifications.Warning("The feed could not be reloaded: "+api.Message(err), 0)
	}
	return nil
}

func runPostEdit(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	updated, err := app.stores.Posts.Update(ctx, args[0], types.UpdatePostRequest{
		Description: joinArgs(args[1:]),
		Title:       postTitle,
		PhotoURL:    postPhotoURL,
	})
	if err != nil {
		return app.notifyErr(err)
	}
	if updated != nil {
		app.println(app.currentStyles().Post(*updated))
	}
	app.stores.Notifications.Success("Post updated.", 0)
	return nil
}

func runPostDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := app.stores.Posts.Delete(ctx, args[0]); err != nil {
		return app.notifyErr(err)
	}
	app.stores.Notifications.Success("Post deleted.", 0)
	return nil
}

func runPostLike(cmd *cobra.Command, args []string) error {
	return react(cmd, args[0], true)
}

func runPostUnlike(cmd *cobra.Command, args []string) error {
	return react(cmd, args[0], false)
}

func react(cmd *cobra.Command, id string, like bool) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	posts := app.stores.Posts
	call := posts.Unlike
	if like {
		call = posts.Like
	}
	post, err := call(ctx, id)
	if err != nil {
		return app.notifyErr(err)
	}
	if post != nil {
		app.println(app.currentStyles().Post(*post))
	}
	return nil
}
