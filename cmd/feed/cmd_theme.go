package main

import (
	"errors"
	"slices"

	"critiqal/internal/logging"
	"critiqal/internal/state"
	"critiqal/internal/store"

	"github.com/spf13/cobra"
)

// themeCmd shows and changes the persisted theme
var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show or change the color theme",
	RunE:  runThemeShow,
}

var themeModeCmd = &cobra.Command{
	Use:       "mode <light|dark>",
	Short:     "Switch between light and dark",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(state.ThemeLight), string(state.ThemeDark)},
	RunE:      runThemeMode,
}

var themeAccentCmd = &cobra.Command{
	Use:   "accent <#rrggbb>",
	Short: "Set the accent color",
	Args:  cobra.ExactArgs(1),
	RunE:  runThemeAccent,
}

var themeResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default theme",
	RunE:  runThemeReset,
}

var themeWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow theme changes made by other feed processes",
	Long: `Watches the state file and prints the theme whenever another
process changes it. Requires storage.driver: file.`,
	RunE: runThemeWatch,
}

func init() {
	themeCmd.AddCommand(themeModeCmd)
	themeCmd.AddCommand(themeAccentCmd)
	themeCmd.AddCommand(themeResetCmd)
	themeCmd.AddCommand(themeWatchCmd)
	rootCmd.AddCommand(themeCmd)
}

func runThemeShow(cmd *cobra.Command, args []string) error {
	app.println(app.currentStyles().ThemeSummary(app.stores.Theme.Get()))
	return nil
}

func runThemeMode(cmd *cobra.Command, args []string) error {
	if err := app.stores.Theme.SetMode(state.ThemeMode(args[0])); err != nil {
		return err
	}
	return runThemeShow(cmd, nil)
}

func runThemeAccent(cmd *cobra.Command, args []string) error {
	if err := app.stores.Theme.SetAccentColor(args[0]); err != nil {
		return err
	}
	return runThemeShow(cmd, nil)
}

func runThemeReset(cmd *cobra.Command, args []string) error {
	if err := app.stores.Theme.Reset(); err != nil {
		return err
	}
	return runThemeShow(cmd, nil)
}

func runThemeWatch(cmd *cobra.Command, args []string) error {
	fs, ok := app.backend.(*store.FileStore)
	if !ok {
		return errors.New("theme watch requires storage.driver: file")
	}

	ctx := cmd.Context()
	if ctx == nil {
		return errors.New("theme watch needs a cancellable context")
	}

	themes := app.stores.Theme
	unsub := themes.Subscribe(func(t state.Theme) {
		app.println(app.currentStyles().ThemeSummary(t))
	})
	defer unsub()

	return fs.Watch(ctx, func(changed []string) {
		if slices.Contains(changed, store.KeyTheme) {
			logging.Get(logging.CategoryCLI).Debug("Theme changed on disk")
			themes.Reload()
		}
	})
}
