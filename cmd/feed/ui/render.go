package ui

import (
	"fmt"
	"strings"
	"time"

	"critiqal/internal/state"
	"critiqal/internal/types"
)

// Post renders one post as a card.
func (s Styles) Post(p types.Post) string {
	var b strings.Builder

	author := "unknown"
	if a := p.AuthorRef(); a != nil {
		author = "@" + a.Username
	}
	b.WriteString(s.Author.Render(author))
	if when := relativeTime(p.CreatedAt, time.Now()); when != "" {
		b.WriteString(" " + s.Muted.Render("· "+when))
	}
	b.WriteString("\n")

	if p.Title != "" {
		b.WriteString(s.Bold.Render(p.Title) + "\n")
	}
	if body := p.Body(); body != "" {
		b.WriteString(s.Body.Render(body) + "\n")
	}
	for _, m := range p.Media {
		b.WriteString(s.Muted.Render(fmt.Sprintf("[%s] %s", m.Type, m.URL)) + "\n")
	}
	if p.PhotoURL != "" {
		b.WriteString(s.Muted.Render("[image] "+p.PhotoURL) + "\n")
	}

	heart := "♡"
	if p.IsLiked {
		heart = "♥"
	}
	b.WriteString(s.Muted.Render(fmt.Sprintf("%s %d  ✎ %d  id:%s", heart, p.LikesCount, p.CommentsCount, p.ID)))

	return s.Card.Render(b.String())
}

// Feed renders posts in order, or a hint when there are none.
func (s Styles) Feed(posts []types.Post) string {
	if len(posts) == 0 {
		return s.Hint.Render("No posts yet.")
	}
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = s.Post(p)
	}
	return strings.Join(out, "\n")
}

// User renders a profile header.
func (s Styles) User(u types.User) string {
	var b strings.Builder
	b.WriteString(s.Title.Render(u.DisplayName()))
	b.WriteString(" " + s.Muted.Render("@"+u.Username))
	if u.Bio != "" {
		b.WriteString("\n" + s.Body.Render(u.Bio))
	}
	if pic := u.Picture(); pic != "" {
		b.WriteString("\n" + s.Muted.Render("photo: "+pic))
	}
	return b.String()
}

// Notification renders one notification line.
func (s Styles) Notification(n state.Notification) string {
	switch n.Type {
	case state.NotifySuccess:
		return s.Success.Render("✓ ") + s.Body.Render(n.Message)
	case state.NotifyError:
		return s.Error.Render("✗ ") + s.Body.Render(n.Message)
	case state.NotifyWarning:
		return s.Warning.Render("! ") + s.Body.Render(n.Message)
	default:
		return s.Info.Render("i ") + s.Body.Render(n.Message)
	}
}

// Progress renders a fixed-width progress bar for percent in [0, 100].
func (s Styles) Progress(percent float64, width int) string {
	if width < 1 {
		width = 20
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	bar := s.Title.Render(strings.Repeat("█", filled)) + s.Divider.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, percent)
}

// ThemeSummary describes a theme.
func (s Styles) ThemeSummary(t state.Theme) string {
	return fmt.Sprintf("%s %s  %s %s",
		s.Muted.Render("mode:"), s.Bold.Render(string(t.Mode)),
		s.Muted.Render("accent:"), s.Badge.Render(t.AccentColor))
}

// relativeTime formats an RFC 3339 timestamp relative to now. Unparseable
// input is returned unchanged.
func relativeTime(stamp string, now time.Time) string {
	if stamp == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return stamp
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
