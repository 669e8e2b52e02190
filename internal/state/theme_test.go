package state

import (
	"encoding/json"
	"testing"

	"critiqal/internal/store"

	"github.com/stretchr/testify/require"
)

func TestThemeDefaults(t *testing.T) {
	var applied []Theme
	th := NewThemeStore(store.NewMemoryStore(), func(t Theme) { applied = append(applied, t) })

	require.Equal(t, Theme{Mode: ThemeLight, AccentColor: "#3B82F6"}, th.Get())
	require.Equal(t, []Theme{DefaultTheme()}, applied, "theme applied once on construction")
}

func TestThemeLoadsPersistedValue(t *testing.T) {
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(store.KeyTheme, `{"mode":"dark","accentColor":"#10B981"}`))

	th := NewThemeStore(kv, nil)
	require.Equal(t, Theme{Mode: ThemeDark, AccentColor: "#10B981"}, th.Get())
}

func TestThemeIgnoresUnreadableValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Theme
	}{
		{"not json", "{oops", DefaultTheme()},
		{"unknown mode", `{"mode":"sepia"}`, DefaultTheme()},
		{"partial", `{"mode":"dark"}`, Theme{Mode: ThemeDark, AccentColor: DefaultAccentColor}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := store.NewMemoryStore()
			require.NoError(t, kv.Set(store.KeyTheme, tt.raw))
			require.Equal(t, tt.want, NewThemeStore(kv, nil).Get())
		})
	}
}

func TestThemeChangesPersistAndApply(t *testing.T) {
	kv := store.NewMemoryStore()
	var applied []Theme
	th := NewThemeStore(kv, func(t Theme) { applied = append(applied, t) })

	require.NoError(t, th.SetMode(ThemeDark))
	require.NoError(t, th.SetAccentColor("#f0a"))

	want := Theme{Mode: ThemeDark, AccentColor: "#f0a"}
	require.Equal(t, want, th.Get())
	require.Equal(t, want, applied[len(applied)-1])
	require.Len(t, applied, 3)

	raw := store.GetString(kv, store.KeyTheme)
	var persisted map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	require.Equal(t, map[string]string{"mode": "dark", "accentColor": "#f0a"}, persisted)

	// A fresh store sees the persisted value.
	require.Equal(t, want, NewThemeStore(kv, nil).Get())
}

func TestThemeRejectsInvalidInput(t *testing.T) {
	kv := store.NewMemoryStore()
	th := NewThemeStore(kv, nil)

	require.Error(t, th.SetMode("sepia"))
	require.Error(t, th.SetAccentColor("blue"))
	require.Error(t, th.SetAccentColor("#12345"))
	require.Equal(t, DefaultTheme(), th.Get())

	_, ok, err := kv.Get(store.KeyTheme)
	require.NoError(t, err)
	require.False(t, ok, "nothing persisted on rejected input")
}

func TestThemeResetAndReload(t *testing.T) {
	kv := store.NewMemoryStore()
	th := NewThemeStore(kv, nil)
	require.NoError(t, th.SetMode(ThemeDark))

	require.NoError(t, th.Reset())
	require.Equal(t, DefaultTheme(), th.Get())

	var applied []Theme
	other := NewThemeStore(kv, func(t Theme) { applied = append(applied, t) })
	require.NoError(t, kv.Set(store.KeyTheme, `{"mode":"dark","accentColor":"#000000"}`))

	other.Reload()
	other.Reload()
	require.Equal(t, Theme{Mode: ThemeDark, AccentColor: "#000000"}, other.Get())
	require.Len(t, applied, 2, "reload applies only when the theme changed")
}

func TestThemePersistFailureKeepsState(t *testing.T) {
	kv := store.NewMemoryStore()
	th := NewThemeStore(kv, nil)
	require.NoError(t, kv.Close())

	require.ErrorIs(t, th.SetMode(ThemeDark), store.ErrClosed)
	require.Equal(t, DefaultTheme(), th.Get())
}
