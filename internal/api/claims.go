package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what the client can learn from a token without its signing key.
type TokenInfo struct {
	UserID    string
	Username  string
	Type      string    // access or refresh
	ExpiresAt time.Time // zero when the token carries no exp
}

// Expired reports whether the token is past its expiry at now.
func (t TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// TokenClaims decodes token claims without verifying the signature.
// The server remains the only authority on validity; the result is only used
// for display and as a username fallback.
func TokenClaims(token string) (TokenInfo, error) {
	if token == "" {
		return TokenInfo{}, errors.New("empty token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("failed to decode token: %w", err)
	}

	info := TokenInfo{
		UserID:   claimString(claims, "user_id"),
		Username: claimString(claims, "username"),
		Type:     claimString(claims, "type"),
	}
	if info.UserID == "" {
		info.UserID, _ = claims.GetSubject()
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

// claimString renders a claim that may be a string or a JSON number.
func claimString(claims jwt.MapClaims, key string) string {
	v, ok := claims[key]
	if !ok || v == nil {
		return ""
	}
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(v)
}
