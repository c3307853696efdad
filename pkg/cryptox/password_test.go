package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "leafmarks-test-pepper")
	SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"unicode password", "пароль密码"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest, version, err := HashPassword(tt.password)
			require.NoError(t, err)
			require.Equal(t, CurrentScheme, version)
			require.True(t, strings.HasPrefix(digest, "$argon2id$v=19$"))

			match, upgrade, err := VerifyPassword(tt.password, digest, version)
			require.NoError(t, err)
			require.True(t, match)
			require.False(t, upgrade, "fresh hashes must not need upgrade")
		})
	}
}

func TestVerifyPasswordMismatch(t *testing.T) {
	digest, version, err := HashPassword("correct-horse")
	require.NoError(t, err)

	match, upgrade, err := VerifyPassword("battery-staple", digest, version)
	require.NoError(t, err)
	require.False(t, match)
	require.False(t, upgrade)
}

func TestVerifyPasswordSaltedUniquely(t *testing.T) {
	a, _, err := HashPassword("same-password")
	require.NoError(t, err)
	b, _, err := HashPassword("same-password")
	require.NoError(t, err)
	require.NotEqual(t, a, b, "each hash must use a fresh salt")
}

func TestLegacyBcryptFlagsUpgrade(t *testing.T) {
	digest, version, err := HashPasswordBcrypt("legacy-pw")
	require.NoError(t, err)
	require.Equal(t, SchemeBcrypt, version)

	match, upgrade, err := VerifyPassword("legacy-pw", digest, version)
	require.NoError(t, err)
	require.True(t, match)
	require.True(t, upgrade, "bcrypt digests must always be flagged for upgrade")

	match, _, err = VerifyPassword("wrong-pw", digest, version)
	require.NoError(t, err)
	require.False(t, match)
}

func TestVerifyPasswordMalformedDigest(t *testing.T) {
	_, _, err := VerifyPassword("pw", "$argon2id$garbage", SchemeArgon2id)
	require.Error(t, err)

	_, _, err = VerifyPassword("pw", "whatever", 99)
	require.ErrorIs(t, err, ErrUnknownScheme)
}

func TestGenerateTokenAndFingerprint(t *testing.T) {
	tok, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43)

	other, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, tok, other)

	require.Equal(t, FingerprintToken(tok), FingerprintToken(tok))
	require.NotEqual(t, FingerprintToken(tok), FingerprintToken(other))

	_, err = GenerateToken(0)
	require.Error(t, err)
}
