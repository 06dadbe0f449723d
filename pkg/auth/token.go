package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what the cart service can learn about its configured bearer
// token without holding the signing key.
type TokenInfo struct {
	Subject   string
	Issuer    string
	ExpiresAt time.Time
	HasExpiry bool
}

// Expired reports whether the token carries an exp claim at or before now.
func (i TokenInfo) Expired(now time.Time) bool {
	return i.HasExpiry && !now.Before(i.ExpiresAt)
}

// ExpiresWithin reports whether the token expires inside the given window.
func (i TokenInfo) ExpiresWithin(now time.Time, window time.Duration) bool {
	return i.HasExpiry && i.ExpiresAt.Sub(now) <= window
}

// Inspect decodes the registered claims of a bearer token. The signature is
// not verified; the remote API remains the authority on validity.
func Inspect(raw string) (TokenInfo, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))
	if raw == "" {
		return TokenInfo{}, fmt.Errorf("token is empty")
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("decoding jwt: %w", err)
	}

	info := TokenInfo{Subject: claims.Subject, Issuer: claims.Issuer}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time.UTC()
		info.HasExpiry = true
	}
	return info, nil
}
