package main

import (
	"fmt"
	"io"
	"sync"

	"critiqal/cmd/feed/ui"
	"critiqal/internal/api"
	"critiqal/internal/config"
	"critiqal/internal/logging"
	"critiqal/internal/service"
	"critiqal/internal/state"
	"critiqal/internal/store"
	"critiqal/internal/usage"
)

// feedApp holds everything one command invocation needs.
type feedApp struct {
	cfg      *config.Config
	out      io.Writer
	backend  store.Backend
	creds    api.Credentials
	client   *api.Client
	services *service.Services
	stores   *state.Stores
	nav      *navigator
	usage    *usage.Tracker
	command  string

	mu     sync.RWMutex
	styles ui.Styles

	unsubscribe []func()
}

// newApp wires storage, transport, services and stores from cfg.
func newApp(cfg *config.Config, out io.Writer) (*feedApp, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "newApp")
	defer timer.Stop()

	backend, err := store.Open(store.Options{Driver: cfg.Storage.Driver, Path: cfg.Storage.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	creds, err := api.NewCredentials(string(cfg.Auth.Mode), backend, cfg.API.BaseURL)
	if err != nil {
		backend.Close()
		return nil, err
	}

	a := &feedApp{
		cfg:     cfg,
		out:     out,
		backend: backend,
		creds:   creds,
		styles:  ui.DefaultStyles(),
		usage:   usage.NewTracker(backend),
	}
	a.nav = newNavigator(out, a.currentStyles)

	auth := state.NewAuthStore()
	client, err := api.NewClient(api.Options{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.GetTimeout(),
		Credentials: creds,
		Retry:       api.RetryPolicy{MaxRetries: cfg.API.Retry.MaxRetries, Delay: cfg.GetRetryDelay()},
		Session:     auth,
		Navigator:   a.nav,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}
	a.client = client

	a.services = service.New(service.Options{
		Transport:   client,
		Credentials: creds,
		KV:          backend,
		Session:     auth,
		Navigator:   a.nav,
	})
	a.stores = state.New(state.Options{
		Auth:                 auth,
		Posts:                a.services.Posts,
		KV:                   backend,
		FeedLimit:            cfg.GetFeedLimit(),
		NotificationDuration: cfg.GetNotificationDuration(),
		ApplyTheme:           a.applyTheme,
	})

	printer := newNotificationPrinter(out, a.currentStyles)
	a.unsubscribe = append(a.unsubscribe, a.stores.Notifications.Subscribe(printer.observe))

	logging.Boot("App ready (auth=%s)", creds.Mode())
	return a, nil
}

func (a *feedApp) applyTheme(t state.Theme) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.styles = ui.NewStyles(ui.ThemeFrom(t))
	logging.Get(logging.CategoryCLI).Debug("Theme applied: %s %s", t.Mode, t.AccentColor)
}

func (a *feedApp) currentStyles() ui.Styles {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.styles
}

// println writes one line to the command output.
func (a *feedApp) println(s string) {
	fmt.Fprintln(a.out, s)
}

// reportedError is an error the user already saw as a notification.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// notifyErr reports err as an error notification and returns it marked as
// reported, so main does not print it again.
func (a *feedApp) notifyErr(err error) error {
	a.stores.Notifications.Error(api.Message(err), 0)
	return &reportedError{err: err}
}

// Close records usage, then releases timers, subscriptions and storage.
func (a *feedApp) Close() {
	stats := a.client.Stats()
	logging.APIDebug("Session stats: refreshes=%d auth_retries=%d transient_retries=%d",
		stats.RefreshAttempts, stats.AuthRetries, stats.TransientRetries)
	a.usage.Track(a.command, stats)
	if err := a.usage.Save(); err != nil {
		logging.StoreWarn("Failed to save usage: %v", err)
	}

	for _, unsub := range a.unsubscribe {
		unsub()
	}
	a.stores.Close()
	if err := a.backend.Close(); err != nil {
		logging.StoreWarn("Failed to close storage: %v", err)
	}
}
