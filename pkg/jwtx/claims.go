package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Access tokens are deliberately short-lived because
// they cannot be revoked before expiry; the revocable refresh token is the
// long-lived half of the pair.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenTypeAccess is the value of the "typ" claim on access tokens. The
// discriminator stops an access token being presented where a refresh or
// verification token is expected, and vice versa.
const TokenTypeAccess = "access"

// Claims is the signed claim set carried by an access token. Validity is
// determined solely by signature and expiry, never by a store lookup.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the subject's role name at issue time ("user", "moderator",
	// "admin"). Re-read from the user record on refresh so role changes
	// take effect on the next rotation.
	Role string `json:"role,omitempty"`

	// TokenType discriminates access tokens from other token kinds.
	TokenType string `json:"typ,omitempty"`
}

// NewAccessClaims builds a minimally-correct access-token claim set.
func NewAccessClaims(subject, role, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
		Role:      role,
		TokenType: TokenTypeAccess,
	}
}

// newJTI returns a URL-safe random identifier for the "jti" claim.
func newJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateExpiry checks exp and nbf against the supplied time.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}

// ValidateIssuer enforces the issuer claim when expected is non-empty.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected != "" && c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateTokenType enforces the "typ" discriminator.
func (c *Claims) ValidateTokenType(expected string) error {
	if c.TokenType != expected {
		return ErrTokenType
	}
	return nil
}
