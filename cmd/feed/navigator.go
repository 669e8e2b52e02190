package main

import (
	"fmt"
	"io"
	"sync"

	"critiqal/cmd/feed/ui"
	"critiqal/internal/api"
	"critiqal/internal/logging"
	"critiqal/internal/state"
)

// navigator tracks the command being run as the current view. Being sent
// to the sign-in view prints a hint instead of switching screens.
type navigator struct {
	mu     sync.Mutex
	view   string
	out    io.Writer
	styles func() ui.Styles
}

func newNavigator(out io.Writer, styles func() ui.Styles) *navigator {
	return &navigator{out: out, styles: styles}
}

func (n *navigator) CurrentView() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.view
}

func (n *navigator) Navigate(view string) {
	n.mu.Lock()
	prev := n.view
	n.view = view
	n.mu.Unlock()

	logging.Get(logging.CategoryCLI).Debug("Navigate %s -> %s", prev, view)
	if view == api.ViewSignIn && prev != "" {
		fmt.Fprintln(n.out, n.styles().Hint.Render("Run `feed sign-in` to continue."))
	}
}

// notificationPrinter prints each notification once, when it first appears.
type notificationPrinter struct {
	mu     sync.Mutex
	seen   map[string]bool
	out    io.Writer
	styles func() ui.Styles
}

func newNotificationPrinter(out io.Writer, styles func() ui.Styles) *notificationPrinter {
	return &notificationPrinter{seen: make(map[string]bool), out: out, styles: styles}
}

func (p *notificationPrinter) observe(list []state.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range list {
		if p.seen[n.ID] {
			continue
		}
		p.seen[n.ID] = true
		fmt.Fprintln(p.out, p.styles().Notification(n))
	}
}
