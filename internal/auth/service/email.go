package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
	"github.com/leafmarks/leafmarks/internal/auth/store"
)

// VerifyEmail consumes a verify-email token and marks the address verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	now := time.Now().UTC()

	v, err := s.consumeVerification(ctx, token, domain.PurposeVerifyEmail, now)
	if err != nil {
		return err
	}

	if err := s.Store.Users().MarkEmailVerified(ctx, v.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}
	s.Users.Invalidate(v.UserID)
	return nil
}

// ResendVerification re-issues a verify-email token for an unverified
// account. Like ForgotPassword it reports success regardless of whether
// the email exists, and it shares the brute-force window so the endpoint
// cannot be used to spam a mailbox.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	now := time.Now().UTC()
	email = strings.ToLower(strings.TrimSpace(email))

	if err := s.Limiter.Check(ctx, email, ActionResendVerification, now); err != nil {
		return err
	}
	s.Limiter.Fail(ctx, email, ActionResendVerification, now)

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if !u.Active || u.Verified {
		return nil
	}

	token, err := s.issueVerification(ctx, u.ID, domain.PurposeVerifyEmail, nil, now)
	if err != nil {
		return err
	}
	s.Notifier.SendEmailVerification(ctx, u.Email, token)
	return nil
}

// RequestEmailChange starts moving an account to a new address. The
// current email stays authoritative until the token sent to the NEW
// address is confirmed, so a hijacked session alone cannot steal the
// account's contact point.
func (s *AuthService) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	now := time.Now().UTC()
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))

	if _, err := s.Store.Users().GetUserByEmail(ctx, newEmail); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	u, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	token, err := s.issueVerification(ctx, u.ID, domain.PurposeEmailChange, &newEmail, now)
	if err != nil {
		return err
	}
	s.Notifier.SendEmailChange(ctx, newEmail, token)
	return nil
}

// ConfirmEmailChange consumes the change token and installs the new
// address. The address lands verified: the token arriving proves control
// of the mailbox. A conflicting signup that won the race surfaces as
// ErrDuplicateEmail.
func (s *AuthService) ConfirmEmailChange(ctx context.Context, token string) error {
	now := time.Now().UTC()

	v, err := s.consumeVerification(ctx, token, domain.PurposeEmailChange, now)
	if err != nil {
		return err
	}
	if v.NewEmail == nil {
		return ErrInvalidOrExpiredToken
	}

	if err := s.Store.Users().UpdateEmail(ctx, v.UserID, *v.NewEmail); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return ErrDuplicateEmail
		case errors.Is(err, store.ErrNotFound):
			return ErrInvalidOrExpiredToken
		}
		return err
	}
	s.Users.Invalidate(v.UserID)
	return nil
}
