package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"critiqal/internal/api"
	"critiqal/internal/store"
	"critiqal/internal/types"

	"github.com/spf13/cobra"
)

var (
	authUsername  string
	authPassword  string
	authEmail     string
	authFirstName string
	authLastName  string
)

// signInCmd signs in with username and password
var signInCmd = &cobra.Command{
	Use:   "sign-in",
	Short: "Sign in to critiqal",
	Long: `Signs in and stores the session so later commands are authenticated.

When --password is omitted the password is read from the first line of stdin.

Example:
  feed sign-in -u alice
  echo "$PASS" | feed sign-in -u alice`,
	RunE: runSignIn,
}

// signUpCmd registers a new account
var signUpCmd = &cobra.Command{
	Use:   "sign-up",
	Short: "Create a critiqal account",
	RunE:  runSignUp,
}

// signOutCmd ends the session
var signOutCmd = &cobra.Command{
	Use:   "sign-out",
	Short: "Sign out and forget stored credentials",
	RunE:  runSignOut,
}

// whoamiCmd shows the signed-in user
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWhoami,
}

// statusCmd shows client configuration and stored session details
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and session status",
	RunE:  runStatus,
}

func init() {
	signInCmd.Flags().StringVarP(&authUsername, "username", "u", "", "Username (required)")
	signInCmd.Flags().StringVarP(&authPassword, "password", "p", "", "Password (default: read from stdin)")
	signInCmd.MarkFlagRequired("username")

	signUpCmd.Flags().StringVarP(&authUsername, "username", "u", "", "Username (required)")
	signUpCmd.Flags().StringVarP(&authPassword, "password", "p", "", "Password (default: read from stdin)")
	signUpCmd.Flags().StringVar(&authEmail, "email", "", "Email address (required)")
	signUpCmd.Flags().StringVar(&authFirstName, "first-name", "", "First name")
	signUpCmd.Flags().StringVar(&authLastName, "last-name", "", "Last name")
	signUpCmd.MarkFlagRequired("username")
	signUpCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(signInCmd)
	rootCmd.AddCommand(signUpCmd)
	rootCmd.AddCommand(signOutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(statusCmd)
}

// readPassword returns the flag value or the first line of in.
func readPassword(in io.Reader) (string, error) {
	if authPassword != "" {
		return authPassword, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required (use --password or stdin)")
	}
	return line, nil
}

func runSignIn(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	user, err := app.services.Auth.SignIn(ctx, types.LoginRequest{Username: authUsername, Password: password})
	if err != nil {
		return app.notifyErr(err)
	}
	app.stores.Notifications.Success(fmt.Sprintf("Welcome back, %s!", user.DisplayName()), 0)
	return nil
}

func runSignUp(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	user, err := app.services.Auth.SignUp(ctx, types.RegisterRequest{
		Username:  authUsername,
		Email:     authEmail,
		Password:  password,
		FirstName: authFirstName,
		LastName:  authLastName,
	})
	if err != nil {
		return app.notifyErr(err)
	}
	app.stores.Notifications.Success(fmt.Sprintf("Account created. Welcome, %s!", user.DisplayName()), 0)
	return nil
}

func runSignOut(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	app.services.Auth.SignOut(ctx)
	app.stores.Notifications.Info("Signed out.", 0)
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	user, err := app.services.Auth.Initialize(ctx)
	if err != nil {
		if errors.Is(err, api.ErrAuthExpired) || api.IsStatus(err, http.StatusUnauthorized) {
			app.println(app.currentStyles().Hint.Render("Not signed in."))
			return nil
		}
		return app.notifyErr(err)
	}
	app.println(app.currentStyles().User(*user))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	s := app.currentStyles()
	cfg := app.cfg

	app.println(s.Title.Render("critiqal"))
	app.println(fmt.Sprintf("%s %s", s.Muted.Render("api:"), cfg.API.BaseURL))
	app.println(fmt.Sprintf("%s %s", s.Muted.Render("auth:"), app.creds.Mode()))
	app.println(fmt.Sprintf("%s %s %s", s.Muted.Render("storage:"), cfg.Storage.Driver, cfg.Storage.Path))

	switch creds := app.creds.(type) {
	case *api.CookieCredentials:
		if creds.HasSession() {
			app.println(fmt.Sprintf("%s %s", s.Muted.Render("session:"), "cookie present"))
		} else {
			app.println(fmt.Sprintf("%s %s", s.Muted.Render("session:"), "none"))
		}
	default:
		app.println(fmt.Sprintf("%s %s", s.Muted.Render("session:"), bearerStatus(time.Now())))
	}

	total := app.usage.Stats().Total
	app.println(fmt.Sprintf("%s %d runs, %d refreshes, %d auth retries, %d transient retries",
		s.Muted.Render("usage:"), total.Runs, total.RefreshAttempts, total.AuthRetries, total.TransientRetries))
	last := "never"
	if t := app.usage.LastRun(); !t.IsZero() {
		last = t.Local().Format(time.RFC3339)
	}
	app.println(fmt.Sprintf("%s %s", s.Muted.Render("last run:"), last))
	return nil
}

// bearerStatus describes the stored bearer token.
func bearerStatus(now time.Time) string {
	token := store.GetString(app.backend, store.KeyToken)
	if token == "" {
		return "none"
	}
	username := store.GetString(app.backend, store.KeyUsername)
	info, err := api.TokenClaims(token)
	if err != nil {
		return fmt.Sprintf("%s (unreadable token)", username)
	}
	if info.Expired(now) {
		return fmt.Sprintf("%s (token expired %s, will refresh)", username, info.ExpiresAt.Format(time.RFC3339))
	}
	if info.ExpiresAt.IsZero() {
		return username
	}
	return fmt.Sprintf("%s (token valid until %s)", username, info.ExpiresAt.Format(time.RFC3339))
}
