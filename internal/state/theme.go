package state

import (
	"encoding/json"
	"fmt"
	"regexp"

	"critiqal/internal/logging"
	"critiqal/internal/store"
)

// ThemeMode is light or dark.
type ThemeMode string

const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
)

// DefaultAccentColor is the initial accent (blue-500).
const DefaultAccentColor = "#3B82F6"

// Theme is the persisted UI preference.
type Theme struct {
	Mode        ThemeMode `json:"mode"`
	AccentColor string    `json:"accentColor"`
}

// DefaultTheme returns the initial theme.
func DefaultTheme() Theme {
	return Theme{Mode: ThemeLight, AccentColor: DefaultAccentColor}
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ThemeStore holds the theme and persists every change under store.KeyTheme.
type ThemeStore struct {
	store *Writable[Theme]
	kv    store.KV
	apply func(Theme)
}

// NewThemeStore loads the persisted theme from kv. A missing or unreadable
// entry leaves the default. apply, when non-nil, is called with the theme
// after construction and after every change.
func NewThemeStore(kv store.KV, apply func(Theme)) *ThemeStore {
	t := &ThemeStore{store: NewWritable(loadTheme(kv)), kv: kv, apply: apply}
	if apply != nil {
		apply(t.store.Get())
	}
	return t
}

func loadTheme(kv store.KV) Theme {
	theme := DefaultTheme()
	raw := store.GetString(kv, store.KeyTheme)
	if raw == "" {
		return theme
	}
	var stored Theme
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		logging.StateDebug("Ignoring unreadable theme: %v", err)
		return theme
	}
	if stored.Mode == ThemeLight || stored.Mode == ThemeDark {
		theme.Mode = stored.Mode
	}
	if stored.AccentColor != "" {
		theme.AccentColor = stored.AccentColor
	}
	return theme
}

// Get returns the current theme.
func (t *ThemeStore) Get() Theme { return t.store.Get() }

// Subscribe observes the theme.
func (t *ThemeStore) Subscribe(fn func(Theme)) func() { return t.store.Subscribe(fn) }

// SetMode switches between light and dark.
func (t *ThemeStore) SetMode(mode ThemeMode) error {
	if mode != ThemeLight && mode != ThemeDark {
		return fmt.Errorf("invalid theme mode %q (want light or dark)", mode)
	}
	next := t.store.Get()
	next.Mode = mode
	return t.commit(next)
}

// SetAccentColor sets the accent color as #rgb or #rrggbb.
func (t *ThemeStore) SetAccentColor(color string) error {
	if !hexColor.MatchString(color) {
		return fmt.Errorf("invalid accent color %q (want #rgb or #rrggbb)", color)
	}
	next := t.store.Get()
	next.AccentColor = color
	return t.commit(next)
}

// Reset restores and persists the default theme.
func (t *ThemeStore) Reset() error {
	return t.commit(DefaultTheme())
}

// Reload re-reads the persisted theme, e.g. after another process changed it.
func (t *ThemeStore) Reload() {
	next := loadTheme(t.kv)
	if next == t.store.Get() {
		return
	}
	t.store.Set(next)
	if t.apply != nil {
		t.apply(next)
	}
}

func (t *ThemeStore) commit(next Theme) error {
	data, err := json.Marshal(next)
	if err != nil {
		return err
	}
	if err := t.kv.Set(store.KeyTheme, string(data)); err != nil {
		return fmt.Errorf("failed to persist theme: %w", err)
	}
	t.store.Set(next)
	if t.apply != nil {
		t.apply(next)
	}
	return nil
}
