package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"critiqal/internal/api"
	"critiqal/internal/state"
	"critiqal/internal/store"
	"critiqal/internal/types"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSignInSetsSession(t *testing.T) {
	f := newFixture(t, map[string]http.HandlerFunc{
		"POST /api/auth/sign-in": respond(http.StatusOK, map[string]any{"user": map[string]any{"username": "a"}}),
	})

	var seen []state.Session
	f.session.Subscribe(func(s state.Session) { seen = append(seen, s) })

	user, err := f.svc.Auth.SignIn(context.Background(), types.LoginRequest{Username: "a", Password: "b"})
	require.NoError(t, err)
	require.Equal(t, "a", user.Username)

	s := f.session.Get()
	require.Equal(t, "a", s.User.Username)
	require.True(t, s.IsAuthenticated)
	require.False(t, s.IsLoading)
	require.Empty(t, s.Error)

	// loading, then user, then loading cleared
	require.Len(t, seen, 4)
	require.True(t, seen[1].IsLoading)
	require.False(t, seen[1].IsAuthenticated)
	require.True(t, seen[2].IsLoading)
	require.True(t, seen[2].IsAuthenticated)
	require.False(t, seen[3].IsLoading)

	hits := f.backend.requests()
	require.Len(t, hits, 1)
	require.JSONEq(t, `{"username":"a","password":"b"}`, hits[0].Body)

	// Cookie-style responses carry no token, so nothing is persisted.
	_, ok, _ := f.kv.Get(store.KeyUsername)
	require.False(t, ok)
}

func TestSignInWithoutUserIsInvalid(t *testing.T) {
	f := newFixture(t, map[string]http.HandlerFunc{
		"POST /api/auth/sign-in": respond(http.StatusOK, map[string]any{"token": "x"}),
	})

	_, err := f.svc.Auth.SignIn(context.Background(), types.LoginRequest{Username: "a", Password: "b"})
	require.ErrorIs(t, err, ErrInvalidResponse)

	s := f.session.Get()
	require.Equal(t, "Invalid response from server", s.Error)
	require.False(t, s.IsAuthenticated)
	require.False(t, s.IsLoading)
}

func TestSignInBadCredentials(t *testing.T) {
	f := newFixture(t, map[string]http.HandlerFunc{
		"POST /api/auth/sign-in": respond(http.StatusUnauthorized, map[string]string{"error": "invalid username or password"}),
	})

	_, err := f.svc.Auth.SignIn(context.Background(), types.LoginRequest{Username: "a", Password: "wrong"})
	require.True(t, api.IsStatus(err, http.StatusUnauthorized))

	require.Equal(t, "invalid username or password", f.session.Get().Error)
	require.Empty(t, f.nav.visits, "bad credentials never redirect")
	require.Len(t, f.backend.requests(), 1, "no refresh attempted")
}

func TestSignInErrorIsClearedOnNextAttempt(t *testing.T) {
	calls := 0
	f := newFixture(t, map[string]http.HandlerFunc{
		"POST /api/auth/sign-in": func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing password"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"username": "a"}})
		},
	})

	_, err := f.svc.Auth.SignIn(context.Background(), types.LoginRequest{Username: "a"})
	require.Error(t, err)
	require.Equal(t, "missing password", f.session.Error.Get())

	var errs []string
	f.session.Error.Subscribe(func(e string) { errs = append(errs, e) })
	_, err = f.svc.Auth.SignIn(context.Background(), types.LoginRequest{Username: "a", Password: "b"})
	require.NoError(t, err)

	require.Equal(t, "missing password", errs[0])
	require.Equal(t, "", errs[1], "error cleared as soon as the attempt starts")
	require.Equal(t, "", f.session.Error.Get())
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestSignInBearerPersistsTokens(t *testing.T) {
	tests := []struct {
		name         string
		user         map[string]any
		claims       jwt.MapClaims
		wantUsername string
	}{
		{
			name:         "username from user",
			user:         map[string]any{"username": "alice"},
			claims:       jwt.MapClaims{"username": "claim"},
			wantUsername: "alice",
		},
		{
			name:         "username from token claim",
			user:         map[string]any{"id": "7"},
			claims:       jwt.MapClaims{"username": "claimed", "exp": time.Now().Add(time.Hour).Unix()},
			wantUsername: "claimed",
		},
		{
			name:         "username as submitted",
			user:         map[string]any{"id": "7"},
			claims:       jwt.MapClaims{"user_id": 7},
			wantUsername: "typed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := signedToken(t, tt.claims)
			f := newFixture(t, map[string]http.HandlerFunc{
				"POST /api/auth/sign-up": respond(http.StatusCreated, map[string]any{
					"user":          tt.user,
					"token":         token,
					"refresh_token": "r1",
				}),
			})

			_, err := f.svc.Auth.SignUp(context.Background(), types.RegisterRequest{Username: "typed", Password: "p"})
			require.NoError(t, err)

			require.Equal(t, token, store.GetString(f.kv, store.KeyToken))
			require.Equal(t, "r1", store.GetString(f.kv, store.KeyRefreshToken))
			require.Equal(t, tt.wantUsername, store.GetString(f.kv, store.KeyUsername))
		})
	}
}

func TestSignOutAlwaysClears(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		view    string
		visits  []string
	}{
		{"server ok", respond(http.StatusOK, map[string]string{"message": "bye"}), "feed", []string{api.ViewSignIn}},
		{"server error swallowed", respond(http.StatusInternalServerError, map[string]string{"error": "boom"}), "profile", []string{api.ViewSignIn}},
		{"already on sign-in", respond(http.StatusOK, nil), api.ViewSignIn, nil},
		{"on sign-up", respond(http.StatusOK, nil), api.ViewSignUp, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]http.HandlerFunc{"POST /api/auth/sign-out": tt.handler})
			f.nav.current = tt.view
			require.NoError(t, f.kv.Set(store.KeyToken, "tok"))
			require.NoError(t, f.kv.Set(store.KeyTheme, `{"mode":"dark"}`))
			f.session.SetUser(&types.User{Username: "a"})

			f.svc.Auth.SignOut(context.Background())

			if diff := cmp.Diff(state.Session{}, f.session.Get()); diff != "" {
				t.Errorf("session not cleared (-want +got):\n%s", diff)
			}
			require.Equal(t, "", store.GetString(f.kv, store.KeyToken))
			require.NotEmpty(t, store.GetString(f.kv, store.KeyTheme), "theme survives sign-out")
			require.Equal(t, tt.visits, f.nav.visits)
			require.Equal(t, "Bearer tok", f.backend.requests()[0].Auth)
		})
	}
}

func TestSignOutUnreachableServer(t *testing.T) {
	f := newFixture(t, nil)
	f.session.SetUser(&types.User{Username: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.svc.Auth.SignOut(ctx)

	require.False(t, f.session.Get().IsAuthenticated)
	require.Equal(t, []string{api.ViewSignIn}, f.nav.visits)
}

func TestInitialize(t *testing.T) {
	t.Run("restores user", func(t *testing.T) {
		f := newFixture(t, map[string]http.HandlerFunc{
			"POST /api/auth/me": respond(http.StatusOK, map[string]any{"id": "1", "username": "alice"}),
		})

		user, err := f.svc.Auth.Initialize(context.Background())
		require.NoError(t, err)
		require.Equal(t, "alice", user.Username)
		require.True(t, f.session.Get().IsAuthenticated)
		require.False(t, f.session.Get().IsLoading)
	})

	t.Run("clears on failure", func(t *testing.T) {
		f := newFixture(t, map[string]http.HandlerFunc{
			"POST /api/auth/me": respond(http.StatusInternalServerError, map[string]string{"error": "db down"}),
		})
		f.session.SetUser(&types.User{Username: "stale"})

		user, err := f.svc.Auth.Initialize(context.Background())
		require.Error(t, err)
		require.Nil(t, user)
		require.Equal(t, state.Session{}, f.session.Get())
	})

	t.Run("null body clears", func(t *testing.T) {
		f := newFixture(t, map[string]http.HandlerFunc{
			"POST /api/auth/me": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) },
		})

		_, err := f.svc.Auth.Initialize(context.Background())
		require.ErrorIs(t, err, ErrInvalidResponse)
		require.False(t, f.session.Get().IsAuthenticated)
	})
}

func TestMeAndUpdateProfile(t *testing.T) {
	f := newFixture(t, map[string]http.HandlerFunc{
		"GET /api/auth/me":       respond(http.StatusOK, map[string]any{"username": "alice"}),
		"POST /api/auth/profile": respond(http.StatusOK, map[string]any{"user": map[string]any{"username": "alice", "bio": "hi"}}),
	})

	me, err := f.svc.Auth.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", me.Username)
	require.False(t, f.session.Get().IsAuthenticated, "Me does not touch the session")

	bio := "hi"
	updated, err := f.svc.Auth.UpdateProfile(context.Background(), types.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	require.Equal(t, "hi", updated.Bio)
	require.Equal(t, "hi", f.session.Get().User.Bio)

	hits := f.backend.requests()
	require.JSONEq(t, `{"bio":"hi"}`, hits[1].Body)
}

func TestUpdateProfileWithoutUser(t *testing.T) {
	f := newFixture(t, map[string]http.HandlerFunc{
		"POST /api/auth/profile": respond(http.StatusOK, map[string]any{}),
	})

	_, err := f.svc.Auth.UpdateProfile(context.Background(), types.ProfileUpdate{})
	require.ErrorIs(t, err, ErrProfileUpdate)
}
