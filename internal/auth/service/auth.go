package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
	"github.com/leafmarks/leafmarks/internal/auth/store"
	"github.com/leafmarks/leafmarks/pkg/cryptox"
	"github.com/leafmarks/leafmarks/pkg/idx"
	"github.com/leafmarks/leafmarks/pkg/slogx"
)

// Default out-of-band token lifetimes.
const (
	DefaultVerifyEmailTTL   = 24 * time.Hour
	DefaultPasswordResetTTL = time.Hour
	DefaultEmailChangeTTL   = time.Hour
)

// AuthService orchestrates the account flows: signup, login, token refresh,
// logout, password lifecycle and email changes. It composes the token and
// user services rather than duplicating them.
type AuthService struct {
	Store    store.Store
	Tokens   *TokenService
	Users    *UserService
	Notifier Notifier
	Limiter  *RateLimiter

	VerifyTTL time.Duration // verify-email token lifetime
	ResetTTL  time.Duration // password-reset token lifetime
	ChangeTTL time.Duration // email-change token lifetime

	// RequireVerifiedEmail blocks login until the address is verified.
	RequireVerifiedEmail bool
}

// SignupParams carries the registration input. Validation of shape (email
// syntax, password length) happens at the HTTP layer; uniqueness here.
type SignupParams struct {
	Email       string
	Username    string
	DisplayName string
	Password    string
}

// Signup registers a new account. The account starts unverified with the
// base user role; a verification token goes out through the Notifier.
// No tokens are issued until the first login.
func (s *AuthService) Signup(ctx context.Context, p SignupParams) (domain.User, error) {
	now := time.Now().UTC()
	email := strings.ToLower(strings.TrimSpace(p.Email))
	username := strings.TrimSpace(p.Username)

	digest, version, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Username:     username,
		DisplayName:  strings.TrimSpace(p.DisplayName),
		PasswordHash: digest,
		HashVersion:  version,
		Role:         domain.RoleUser,
		Verified:     false,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if u.DisplayName == "" {
		u.DisplayName = username
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Disambiguate which unique column collided for the 409 body.
			if _, lerr := s.Store.Users().GetUserByEmail(ctx, email); lerr == nil {
				return domain.User{}, ErrDuplicateEmail
			}
			return domain.User{}, ErrDuplicateUsername
		}
		return domain.User{}, err
	}

	token, err := s.issueVerification(ctx, u.ID, domain.PurposeVerifyEmail, nil, now)
	if err != nil {
		// The account exists; the user can request a resend later.
		slogx.FromContext(ctx).Error("issuing signup verification failed",
			"user_id", u.ID, "err", err)
	} else {
		s.Notifier.SendEmailVerification(ctx, u.Email, token)
	}

	return u, nil
}

// Login authenticates by email and password and returns a token pair.
//
// All authentication failures collapse into ErrInvalidCredentials so the
// response never reveals whether the email is registered. Each failure
// counts against the fixed attempt window; a throttled identity is
// rejected before the password is even checked.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, domain.TokenPair, error) {
	now := time.Now().UTC()
	log := slogx.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	if err := s.Limiter.Check(ctx, email, ActionLogin, now); err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Limiter.Fail(ctx, email, ActionLogin, now)
			return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if !u.Active {
		s.Limiter.Fail(ctx, email, ActionLogin, now)
		return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	match, needsUpgrade, err := cryptox.VerifyPassword(password, u.PasswordHash, u.HashVersion)
	if err != nil || !match {
		if err != nil {
			log.Error("password verification failed", "user_id", u.ID, "err", err)
		}
		s.Limiter.Fail(ctx, email, ActionLogin, now)
		return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	if s.RequireVerifiedEmail && !u.Verified {
		return domain.User{}, domain.TokenPair{}, ErrEmailNotVerified
	}

	if needsUpgrade {
		// Transparent re-hash under the current scheme. Failure is not
		// fatal: the old digest still works next time.
		if digest, version, herr := cryptox.HashPassword(password); herr == nil {
			if uerr := s.Store.Users().UpdatePasswordHash(ctx, u.ID, digest, version); uerr != nil {
				log.Error("credential re-hash persist failed", "user_id", u.ID, "err", uerr)
			} else {
				u.PasswordHash = digest
				u.HashVersion = version
				s.Users.Invalidate(u.ID)
			}
		} else {
			log.Error("credential re-hash failed", "user_id", u.ID, "err", herr)
		}
	}

	if err := s.Store.Users().UpdateLastLogin(ctx, u.ID, now); err != nil {
		log.Error("recording last login failed", "user_id", u.ID, "err", err)
	} else {
		u.LastLoginAt = &now
		s.Users.Invalidate(u.ID)
	}

	s.Limiter.Reset(ctx, email, ActionLogin)

	pair, err := s.Tokens.IssuePair(ctx, u, now)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh exchanges a refresh token for a new pair. See TokenService.Refresh.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	return s.Tokens.Refresh(ctx, refreshToken)
}

// Logout revokes the presented refresh token's chain.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.Tokens.Logout(ctx, refreshToken)
}

// issueVerification creates a single-use out-of-band token record and
// returns the opaque value for delivery. newEmail is set only for the
// email-change purpose.
func (s *AuthService) issueVerification(ctx context.Context, userID string, purpose domain.VerificationPurpose, newEmail *string, now time.Time) (string, error) {
	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	v := domain.Verification{
		ID:        idx.New().String(),
		TokenHash: cryptox.FingerprintToken(opaque),
		UserID:    userID,
		Purpose:   purpose,
		NewEmail:  newEmail,
		ExpiresAt: now.Add(s.verificationTTL(purpose)),
		CreatedAt: now,
	}
	if err := s.Store.Verifications().CreateVerification(ctx, v); err != nil {
		return "", err
	}
	return opaque, nil
}

// consumeVerification resolves and burns a single-use token. Lookup misses,
// lapsed lifetimes and already-consumed tokens all collapse into
// ErrInvalidOrExpiredToken; these flows never explain which it was.
func (s *AuthService) consumeVerification(ctx context.Context, opaque string, purpose domain.VerificationPurpose, now time.Time) (domain.Verification, error) {
	fp := cryptox.FingerprintToken(opaque)
	v, err := s.Store.Verifications().GetVerificationByTokenHash(ctx, fp, purpose)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Verification{}, ErrInvalidOrExpiredToken
		}
		return domain.Verification{}, err
	}
	if now.After(v.ExpiresAt) || v.UsedAt != nil {
		return domain.Verification{}, ErrInvalidOrExpiredToken
	}

	used, err := s.Store.Verifications().MarkVerificationUsed(ctx, v.ID, now)
	if err != nil {
		return domain.Verification{}, err
	}
	if !used {
		// Lost a race against a concurrent consumption of the same token.
		return domain.Verification{}, ErrInvalidOrExpiredToken
	}
	v.UsedAt = &now
	return v, nil
}

func (s *AuthService) verificationTTL(purpose domain.VerificationPurpose) time.Duration {
	switch purpose {
	case domain.PurposePasswordReset:
		if s.ResetTTL > 0 {
			return s.ResetTTL
		}
		return DefaultPasswordResetTTL
	case domain.PurposeEmailChange:
		if s.ChangeTTL > 0 {
			return s.ChangeTTL
		}
		return DefaultEmailChangeTTL
	default:
		if s.VerifyTTL > 0 {
			return s.VerifyTTL
		}
		return DefaultVerifyEmailTTL
	}
}
