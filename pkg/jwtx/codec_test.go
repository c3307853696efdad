package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, ttl time.Duration) *Codec {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	c, err := NewCodec(priv, "leafmarks-test", ttl)
	require.NoError(t, err)
	return c
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, 15*time.Minute)
	now := time.Now().UTC()

	token, err := c.IssueAccessToken("user-123", "moderator", now)
	require.NoError(t, err)

	claims, err := c.VerifyAccessToken(token, now)
	require.NoError(t, err)
	require.Equal(t, "user-123", claims.Subject)
	require.Equal(t, "moderator", claims.Role)
	require.Equal(t, TokenTypeAccess, claims.TokenType)
	require.NotEmpty(t, claims.ID, "jti must be populated")
}

func TestVerifyExpiredToken(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, time.Minute)
	issued := time.Now().UTC()

	token, err := c.IssueAccessToken("user-123", "user", issued)
	require.NoError(t, err)

	_, err = c.VerifyAccessToken(token, issued.Add(2*time.Minute))
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	t.Parallel()

	a := newTestCodec(t, time.Minute)
	b := newTestCodec(t, time.Minute)
	now := time.Now().UTC()

	token, err := a.IssueAccessToken("user-123", "user", now)
	require.NoError(t, err)

	_, err = b.VerifyAccessToken(token, now)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, time.Minute)
	_, err := c.VerifyAccessToken("not.a.jwt", time.Now())
	require.Error(t, err)
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	t.Parallel()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	c, err := NewCodec(priv, "leafmarks-test", time.Minute)
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := NewAccessClaims("user-123", "user", "leafmarks-test", time.Minute, now)
	claims.TokenType = "refresh"
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
	require.NoError(t, err)

	_, err = c.VerifyAccessToken(token, now)
	require.ErrorIs(t, err, ErrTokenType)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	issuerA, err := NewCodec(priv, "issuer-a", time.Minute)
	require.NoError(t, err)
	issuerB, err := NewCodec(priv, "issuer-b", time.Minute)
	require.NoError(t, err)

	now := time.Now().UTC()
	token, err := issuerA.IssueAccessToken("user-123", "user", now)
	require.NoError(t, err)

	_, err = issuerB.VerifyAccessToken(token, now)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestLoadOrGenerateKeyRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "signing.pem")

	first, err := LoadOrGenerateKey(path)
	require.NoError(t, err)

	second, err := LoadOrGenerateKey(path)
	require.NoError(t, err)
	require.Equal(t, first, second, "reloading must return the persisted key")

	_, err = os.Stat(path)
	require.NoError(t, err)
}
