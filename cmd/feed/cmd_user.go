package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var searchLimit int

// userCmd groups user commands
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Browse profiles and manage your photo",
}

var userShowCmd = &cobra.Command{
	Use:   "show <username>",
	Short: "Show a profile and its posts",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserShow,
}

var userSearchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search users by name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUserSearch,
}

var userPostsCmd = &cobra.Command{
	Use:   "posts <username>",
	Short: "List a user's posts",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserPosts,
}

var userPhotoCmd = &cobra.Command{
	Use:   "photo <username> <file>",
	Short: "Upload a profile photo",
	Args:  cobra.ExactArgs(2),
	RunE:  runUserPhoto,
}

func init() {
	userSearchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "Maximum results")

	userCmd.AddCommand(userShowCmd)
	userCmd.AddCommand(userSearchCmd)
	userCmd.AddCommand(userPostsCmd)
	userCmd.AddCommand(userPhotoCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	profile, err := app.services.Profile(ctx, args[0])
	if err != nil {
		return app.notifyErr(err)
	}
	s := app.currentStyles()
	if profile.User != nil {
		app.println(s.User(*profile.User))
		app.println(s.RenderDivider(40))
	}
	app.println(s.Feed(profile.Posts))
	return nil
}

func runUserSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	users, err := app.services.Users.Search(ctx, joinArgs(args), searchLimit)
	if err != nil {
		return app.notifyErr(err)
	}
	s := app.currentStyles()
	if len(users) == 0 {
		app.println(s.Hint.Render("No users found."))
		return nil
	}
	for _, u := range users {
		app.println(fmt.Sprintf("%s %s", s.Author.Render("@"+u.Username), s.Muted.Render(u.DisplayName())))
	}
	return nil
}

func runUserPosts(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	posts, err := app.services.Posts.ByUser(ctx, args[0])
	if err != nil {
		return app.notifyErr(err)
	}
	app.println(app.currentStyles().Feed(posts))
	return nil
}

func runUserPhoto(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	path := args[1]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	s := app.currentStyles()
	resp, err := app.services.Users.UploadPhoto(ctx, args[0], filepath.Base(path), f, func(pct float64) {
		fmt.Fprintf(app.out, "\r%s", s.Progress(pct, 30))
	})
	fmt.Fprintln(app.out)
	if err != nil {
		return app.notifyErr(err)
	}
	app.stores.Notifications.Success("Photo uploaded: "+resp.URL, 0)
	return nil
}
