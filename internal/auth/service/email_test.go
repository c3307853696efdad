package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	auth, notifier := newTestAuth(t, st)

	u, err := auth.Signup(ctx, SignupParams{
		Email:    "bob@example.com",
		Username: "bob",
		Password: "hunter22",
	})
	require.NoError(t, err)
	token := notifier.verifyTokens[0]

	require.NoError(t, auth.VerifyEmail(ctx, token))

	stored, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, stored.Verified)

	t.Run("token is single use", func(t *testing.T) {
		require.ErrorIs(t, auth.VerifyEmail(ctx, token), ErrInvalidOrExpiredToken)
	})
}

func TestResendVerification(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	auth, notifier := newTestAuth(t, st)

	_, err := auth.Signup(ctx, SignupParams{
		Email:    "bob@example.com",
		Username: "bob",
		Password: "hunter22",
	})
	require.NoError(t, err)
	require.Len(t, notifier.verifyTokens, 1)

	require.NoError(t, auth.ResendVerification(ctx, "bob@example.com"))
	require.Len(t, notifier.verifyTokens, 2)

	// The re-issued token works.
	require.NoError(t, auth.VerifyEmail(ctx, notifier.verifyTokens[1]))

	// Already verified: succeeds outwardly, nothing sent.
	require.NoError(t, auth.ResendVerification(ctx, "bob@example.com"))
	require.Len(t, notifier.verifyTokens, 2)

	// Unknown address: same outward result.
	require.NoError(t, auth.ResendVerification(ctx, "nobody@example.com"))
	require.Len(t, notifier.verifyTokens, 2)
}

func TestResendVerificationThrottled(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	auth, notifier := newTestAuth(t, st)

	_, err := auth.Signup(ctx, SignupParams{
		Email:    "bob@example.com",
		Username: "bob",
		Password: "hunter22",
	})
	require.NoError(t, err)

	for i := 0; i < auth.Limiter.MaxAttempts; i++ {
		require.NoError(t, auth.ResendVerification(ctx, "bob@example.com"))
	}
	require.ErrorIs(t, auth.ResendVerification(ctx, "bob@example.com"), ErrThrottled)

	// The resend window is independent of the login window.
	require.NoError(t, auth.VerifyEmail(ctx, notifier.verifyTokens[len(notifier.verifyTokens)-1]))
	_, _, err = auth.Login(ctx, "bob@example.com", "hunter22")
	require.NoError(t, err)
}

func TestEmailChange(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	auth, notifier := newTestAuth(t, st)
	u := seedUser(t, st, "alice@example.com", "alice", "correct horse")

	require.NoError(t, auth.RequestEmailChange(ctx, u.ID, "Alice.New@Example.com"))
	require.Len(t, notifier.changeTokens, 1)

	// The old address stays authoritative until the token is confirmed.
	_, _, err := auth.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)

	require.NoError(t, auth.ConfirmEmailChange(ctx, notifier.changeTokens[0]))

	stored, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice.new@example.com", stored.Email)
	require.True(t, stored.Verified)

	_, _, err = auth.Login(ctx, "alice.new@example.com", "correct horse")
	require.NoError(t, err)
	_, _, err = auth.Login(ctx, "alice@example.com", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	t.Run("token is single use", func(t *testing.T) {
		require.ErrorIs(t, auth.ConfirmEmailChange(ctx, notifier.changeTokens[0]),
			ErrInvalidOrExpiredToken)
	})
}

func TestEmailChangeToTakenAddress(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	auth, notifier := newTestAuth(t, st)
	u := seedUser(t, st, "alice@example.com", "alice", "correct horse")
	seedUser(t, st, "taken@example.com", "taken", "whatever1")

	// Rejected up front when the address is already registered.
	require.ErrorIs(t, auth.RequestEmailChange(ctx, u.ID, "taken@example.com"),
		ErrDuplicateEmail)

	// And again at confirm time if a signup won the race in between.
	require.NoError(t, auth.RequestEmailChange(ctx, u.ID, "soon@example.com"))
	_, err := auth.Signup(ctx, SignupParams{
		Email:    "soon@example.com",
		Username: "sniper",
		Password: "password1",
	})
	require.NoError(t, err)
	require.ErrorIs(t, auth.ConfirmEmailChange(ctx, notifier.changeTokens[0]),
		ErrDuplicateEmail)
}
