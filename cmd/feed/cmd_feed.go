package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var feedLimit int

// feedCmd shows the recent-posts feed
var feedCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent posts",
	Long: `Loads the newest posts from every user, newest first.

Example:
  feed recent
  feed recent --limit 10`,
	Aliases: []string{"feed"},
	RunE:    runFeed,
}

func init() {
	feedCmd.Flags().IntVarP(&feedLimit, "limit", "n", 0, "Number of posts (default: feed.limit from config)")
	rootCmd.AddCommand(feedCmd)
}

func runFeed(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	posts := app.stores.Posts
	if err := posts.FetchRecent(ctx, feedLimit); err != nil {
		return app.notifyErr(err)
	}

	s := app.currentStyles()
	app.println(s.Feed(posts.List.Get()))
	if st := posts.Get(); st.HasMore && len(st.Posts) > 0 {
		app.println(s.Hint.Render(fmt.Sprintf("Showing %d posts. Use --limit for more.", len(st.Posts))))
	}
	return nil
}
