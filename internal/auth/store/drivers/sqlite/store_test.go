package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
	"github.com/leafmarks/leafmarks/internal/auth/store"
	"github.com/leafmarks/leafmarks/pkg/idx"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func insertUser(t *testing.T, st *Store, email, username string) domain.User {
	t.Helper()

	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Username:     username,
		DisplayName:  username,
		PasswordHash: "digest",
		HashVersion:  2,
		Role:         domain.RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func TestCreateUserUniqueness(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	insertUser(t, st, "alice@example.com", "alice")

	dup := domain.User{
		ID: idx.New().String(), Email: "ALICE@example.com", Username: "other",
		PasswordHash: "digest", HashVersion: 2, Role: domain.RoleUser,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	// Email uniqueness is case-insensitive.
	require.ErrorIs(t, st.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)

	dup.Email = "other@example.com"
	dup.Username = "ALICE"
	require.ErrorIs(t, st.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
}

func TestMarkRotatedIsConditional(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	u := insertUser(t, st, "alice@example.com", "alice")

	now := time.Now().UTC()
	rt := domain.RefreshToken{
		ID: idx.New().String(), UserID: u.ID, TokenHash: "hash-1",
		ChainID: "chain-1", ExpiresAt: now.Add(time.Hour),
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, rt))

	ok, err := st.RefreshTokens().MarkRotated(ctx, rt.ID, "succ-1", now)
	require.NoError(t, err)
	require.True(t, ok)

	// Second rotation of the same token loses the conditional update.
	ok, err = st.RefreshTokens().MarkRotated(ctx, rt.ID, "succ-2", now)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.True(t, got.Revoked)
	require.NotNil(t, got.ReplacedBy)
	require.Equal(t, "succ-1", *got.ReplacedBy)
}

func TestMarkVerificationUsedOnce(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	u := insertUser(t, st, "alice@example.com", "alice")

	now := time.Now().UTC()
	v := domain.Verification{
		ID: idx.New().String(), TokenHash: "vhash", UserID: u.ID,
		Purpose: domain.PurposePasswordReset, ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, st.Verifications().CreateVerification(ctx, v))

	ok, err := st.Verifications().MarkVerificationUsed(ctx, v.ID, now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.Verifications().MarkVerificationUsed(ctx, v.ID, now)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAttemptWindowRollover(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	now := time.Now().UTC()
	window := 15 * time.Minute

	// Three failures inside the window accumulate.
	for i := 1; i <= 3; i++ {
		w, err := st.Attempts().Increment(ctx, "alice@example.com", "login", now, now.Add(-window))
		require.NoError(t, err)
		require.Equal(t, i, w.Count)
	}

	// A failure after the window lapsed restarts the counter.
	later := now.Add(window + time.Minute)
	w, err := st.Attempts().Increment(ctx, "alice@example.com", "login", later, later.Add(-window))
	require.NoError(t, err)
	require.Equal(t, 1, w.Count)
	require.WithinDuration(t, later, w.WindowStart, time.Second)

	// Reset removes the row entirely.
	require.NoError(t, st.Attempts().Reset(ctx, "alice@example.com", "login"))
	_, err = st.Attempts().GetWindow(ctx, "alice@example.com", "login")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		now := time.Now().UTC()
		u := domain.User{
			ID: idx.New().String(), Email: "tx@example.com", Username: "txuser",
			PasswordHash: "digest", HashVersion: 2, Role: domain.RoleUser,
			CreatedAt: now, UpdatedAt: now,
		}
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.Users().GetUserByEmail(ctx, "tx@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}
