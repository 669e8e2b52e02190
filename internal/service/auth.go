package service

import (
	"context"
	"errors"
	"net/http"

	"critiqal/internal/api"
	"critiqal/internal/logging"
	"critiqal/internal/state"
	"critiqal/internal/store"
	"critiqal/internal/types"
)

var (
	// ErrInvalidResponse is reported when sign-in or sign-up succeeds
	// without a user in the body. The text is shown to users as is.
	ErrInvalidResponse = errors.New("Invalid response from server")

	// ErrProfileUpdate is reported when a profile update returns no user.
	ErrProfileUpdate = errors.New("Failed to update profile")
)

// AuthService signs users in and out and keeps the AuthStore current.
type AuthService struct {
	t       Transport
	creds   api.Credentials
	kv      store.KV
	session *state.AuthStore
	nav     api.Navigator
}

// NewAuthService creates an AuthService. Credentials, KV and Navigator may
// be nil.
func NewAuthService(opts Options) *AuthService {
	session := opts.Session
	if session == nil {
		session = state.NewAuthStore()
	}
	return &AuthService{
		t:       opts.Transport,
		creds:   opts.Credentials,
		kv:      opts.KV,
		session: session,
		nav:     opts.Navigator,
	}
}

// Session returns the store this service updates.
func (a *AuthService) Session() *state.AuthStore { return a.session }

// SignIn authenticates with username and password.
func (a *AuthService) SignIn(ctx context.Context, req types.LoginRequest) (*types.User, error) {
	return a.authenticate(ctx, "/auth/sign-in", req, req.Username)
}

// SignUp registers a new account and signs it in.
func (a *AuthService) SignUp(ctx context.Context, req types.RegisterRequest) (*types.User, error) {
	return a.authenticate(ctx, "/auth/sign-up", req, req.Username)
}

// authenticate runs the loading, call, result sequence shared by sign-in
// and sign-up.
func (a *AuthService) authenticate(ctx context.Context, path string, body any, submitted string) (*types.User, error) {
	loading, noError := true, ""
	a.session.SetState(state.SessionPatch{IsLoading: &loading, Error: &noError})
	defer a.session.SetLoading(false)

	resp, err := api.Post[types.AuthResponse](ctx, a.t, path, body)
	if err == nil && resp.User == nil {
		err = ErrInvalidResponse
	}
	if err != nil {
		logging.AuthWarn("%s failed: %v", path, err)
		a.session.SetError(api.Message(err))
		return nil, err
	}

	a.persist(resp, submitted)
	a.session.SetUser(resp.User)
	logging.Auth("Signed in as %s", resp.User.Username)
	return resp.User, nil
}

// persist stores bearer tokens and the username. Cookie deployments return
// no token and rely on the jar.
func (a *AuthService) persist(resp types.AuthResponse, submitted string) {
	if resp.Token == "" {
		return
	}
	if a.creds != nil {
		if err := a.creds.Save(resp.Token, resp.RefreshToken); err != nil {
			logging.AuthWarn("Failed to persist token: %v", err)
		}
	}
	if a.kv == nil {
		return
	}
	if err := a.kv.Set(store.KeyUsername, resolveUsername(resp, submitted)); err != nil {
		logging.AuthWarn("Failed to persist username: %v", err)
	}
}

// resolveUsername picks the user's name, then the token's username claim,
// then what the user typed.
func resolveUsername(resp types.AuthResponse, submitted string) string {
	if resp.User != nil && resp.User.Username != "" {
		return resp.User.Username
	}
	if info, err := api.TokenClaims(resp.Token); err == nil && info.Username != "" {
		return info.Username
	}
	return submitted
}

// SignOut ends the session. Server errors are ignored; local credentials
// and state are always cleared.
func (a *AuthService) SignOut(ctx context.Context) {
	a.session.SetLoading(true)

	if _, err := a.t.Do(ctx, http.MethodPost, "/auth/sign-out", struct{}{}, nil); err != nil {
		logging.AuthDebug("Sign-out request failed (ignored): %v", err)
	}

	if a.creds != nil {
		if err := a.creds.Clear(); err != nil {
			logging.AuthWarn("Failed to clear credentials: %v", err)
		}
	}
	a.session.ClearAuthState()
	a.session.SetLoading(false)
	logging.Auth("Signed out")

	if a.nav == nil {
		return
	}
	switch a.nav.CurrentView() {
	case api.ViewSignIn, api.ViewSignUp:
	default:
		a.nav.Navigate(api.ViewSignIn)
	}
}

// Initialize restores the session from the server. On any failure the
// session is cleared and the error returned.
func (a *AuthService) Initialize(ctx context.Context) (*types.User, error) {
	a.session.SetLoading(true)
	defer a.session.SetLoading(false)

	user, err := api.Post[*types.User](ctx, a.t, "/auth/me", struct{}{})
	if err == nil && user == nil {
		err = ErrInvalidResponse
	}
	if err != nil {
		logging.SessionDebug("No session to restore: %v", err)
		a.session.ClearAuthState()
		return nil, err
	}
	a.session.SetUser(user)
	logging.Session("Session restored for %s", user.Username)
	return user, nil
}

// Me fetches the signed-in user without touching the session.
func (a *AuthService) Me(ctx context.Context) (*types.User, error) {
	return api.Get[*types.User](ctx, a.t, "/auth/me")
}

// UpdateProfile edits the signed-in user's profile and replaces the session
// user with the returned snapshot.
func (a *AuthService) UpdateProfile(ctx context.Context, update types.ProfileUpdate) (*types.User, error) {
	resp, err := api.Post[types.AuthResponse](ctx, a.t, "/auth/profile", update)
	if err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, ErrProfileUpdate
	}
	a.session.SetUser(resp.User)
	return resp.User, nil
}
