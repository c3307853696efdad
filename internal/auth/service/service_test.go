package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
	"github.com/leafmarks/leafmarks/internal/auth/store"
	"github.com/leafmarks/leafmarks/internal/auth/store/drivers/sqlite"
	"github.com/leafmarks/leafmarks/pkg/cachex"
	"github.com/leafmarks/leafmarks/pkg/cryptox"
	"github.com/leafmarks/leafmarks/pkg/idx"
	"github.com/leafmarks/leafmarks/pkg/jwtx"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "leafmarks-service-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

// recordingNotifier captures delivered tokens so tests can complete the
// out-of-band flows.
type recordingNotifier struct {
	verifyTokens []string
	resetTokens  []string
	changeTokens []string
}

func (n *recordingNotifier) SendEmailVerification(ctx context.Context, email, token string) {
	n.verifyTokens = append(n.verifyTokens, token)
}

func (n *recordingNotifier) SendPasswordReset(ctx context.Context, email, token string) {
	n.resetTokens = append(n.resetTokens, token)
}

func (n *recordingNotifier) SendEmailChange(ctx context.Context, newEmail, token string) {
	n.changeTokens = append(n.changeTokens, token)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestCodec(t *testing.T) *jwtx.Codec {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	codec, err := jwtx.NewCodec(priv, "leafmarks-test", time.Minute)
	require.NoError(t, err)
	return codec
}

func newTestAuth(t *testing.T, st store.Store) (*AuthService, *recordingNotifier) {
	t.Helper()

	notifier := &recordingNotifier{}
	users := &UserService{
		Store: st,
		Cache: cachex.NewTTL[domain.User](time.Minute),
	}
	tokens := &TokenService{
		Store:      st,
		Codec:      newTestCodec(t),
		Users:      users,
		RefreshTTL: time.Hour,
	}
	auth := &AuthService{
		Store:    st,
		Tokens:   tokens,
		Users:    users,
		Notifier: notifier,
		Limiter: &RateLimiter{
			Store:       st,
			MaxAttempts: 5,
			Window:      15 * time.Minute,
		},
		RequireVerifiedEmail: true,
	}
	return auth, notifier
}

// seedUser inserts a verified, active account directly and returns it.
func seedUser(t *testing.T, st store.Store, email, username, password string) domain.User {
	t.Helper()

	digest, version, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Username:     username,
		DisplayName:  username,
		PasswordHash: digest,
		HashVersion:  version,
		Role:         domain.RoleUser,
		Verified:     true,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}
