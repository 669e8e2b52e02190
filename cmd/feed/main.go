package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"critiqal/internal/config"
	"critiqal/internal/logging"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath     string
	verbose     bool
	apiOverride string
	timeout     time.Duration

	// app is built by PersistentPreRunE for every command.
	app *feedApp
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "feed",
	Short: "critiqal - photo feed client",
	Long: `feed is the command line client for a critiqal server.

It signs you in, keeps the session alive across runs, and lets you read
the feed, publish posts and manage your profile.

Configuration is read from ~/.critiqal/config.yaml (see --config).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := logging.Initialize(cfg.Logging.Options()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Boot("feed %s starting (api=%s auth=%s storage=%s)", cmd.Name(), cfg.API.BaseURL, cfg.Auth.Mode, cfg.Storage.Driver)

		a, err := newApp(cfg, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		a.command = cmd.Name()
		a.nav.Navigate(cmd.Name())
		app = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.Close()
			app = nil
		}
		logging.Sync()
	},
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	path := cfgPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if apiOverride != "" {
		cfg.API.BaseURL = apiOverride
	}
	if verbose {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file (default: ~/.critiqal/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiOverride, "api", "", "API base URL (or set CRITIQAL_API_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes err unless a notification already showed it.
func printError(w io.Writer, err error) {
	var reported *reportedError
	if errors.As(err, &reported) {
		return
	}
	fmt.Fprintln(w, err)
}

// commandContext bounds a command by --timeout and the signal context.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

// joinArgs joins positional arguments into one string.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
