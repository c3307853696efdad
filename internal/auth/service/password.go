package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
	"github.com/leafmarks/leafmarks/internal/auth/store"
	"github.com/leafmarks/leafmarks/pkg/cryptox"
	"github.com/leafmarks/leafmarks/pkg/slogx"
)

// ChangePassword rotates an authenticated user's credential. The current
// password must verify first. Every refresh chain is revoked in the same
// transaction as the hash update, so stolen sessions die with the old
// password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	now := time.Now().UTC()

	u, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	match, _, err := cryptox.VerifyPassword(current, u.PasswordHash, u.HashVersion)
	if err != nil || !match {
		if err != nil {
			slogx.FromContext(ctx).Error("password verification failed", "user_id", u.ID, "err", err)
		}
		return ErrInvalidCredentials
	}

	digest, version, err := cryptox.HashPassword(next)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, u.ID, digest, version); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllForUser(ctx, u.ID, now)
	})
	if err != nil {
		return err
	}

	s.Users.Invalidate(u.ID)
	return nil
}

// ForgotPassword starts the reset flow. It always succeeds from the
// caller's point of view, whether or not the email is registered, so the
// endpoint cannot be used to enumerate accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	now := time.Now().UTC()
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if !u.Active {
		return nil
	}

	token, err := s.issueVerification(ctx, u.ID, domain.PurposePasswordReset, nil, now)
	if err != nil {
		return err
	}
	s.Notifier.SendPasswordReset(ctx, u.Email, token)
	return nil
}

// ResetPassword consumes a reset token and installs the new credential.
// The token burns on first use even if two resets race; the loser gets
// ErrInvalidOrExpiredToken. All refresh chains are revoked.
func (s *AuthService) ResetPassword(ctx context.Context, token, next string) error {
	now := time.Now().UTC()

	v, err := s.consumeVerification(ctx, token, domain.PurposePasswordReset, now)
	if err != nil {
		return err
	}

	digest, version, err := cryptox.HashPassword(next)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, v.UserID, digest, version); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllForUser(ctx, v.UserID, now)
	})
	if err != nil {
		return err
	}

	s.Users.Invalidate(v.UserID)
	return nil
}
