package service

import (
	"context"
	"errors"
	"time"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
	"github.com/leafmarks/leafmarks/internal/auth/store"
	"github.com/leafmarks/leafmarks/pkg/cryptox"
	"github.com/leafmarks/leafmarks/pkg/idx"
	"github.com/leafmarks/leafmarks/pkg/jwtx"
	"github.com/leafmarks/leafmarks/pkg/slogx"
)

// errRotationLost is an internal signal: the conditional update found the
// presented token already rotated by a concurrent request.
var errRotationLost = errors.New("rotation lost to concurrent exchange")

// TokenService owns refresh-token chains and access-token issuance.
//
// Refresh tokens are opaque values stored only as fingerprints. Each login
// starts a rotation chain; every exchange revokes the presented link and
// appends a successor. Replay of a revoked link is treated as theft and
// kills the whole chain.
type TokenService struct {
	Store      store.Store
	Codec      *jwtx.Codec
	Users      *UserService
	RefreshTTL time.Duration
}

// IssuePair mints an access token and a fresh refresh chain root for an
// authenticated user.
func (s *TokenService) IssuePair(ctx context.Context, u domain.User, now time.Time) (domain.TokenPair, error) {
	access, err := s.Codec.IssueAccessToken(u.ID, u.Role.String(), now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, err
	}

	id := idx.New().String()
	rt := domain.RefreshToken{
		ID:        id,
		UserID:    u.ID,
		TokenHash: cryptox.FingerprintToken(opaque),
		ChainID:   id, // the root names its chain
		ExpiresAt: now.Add(s.RefreshTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: opaque,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.Codec.AccessTTL().Seconds()),
	}, nil
}

// Refresh exchanges a presented refresh token for a new pair.
//
// Outcomes:
//   - ErrNotFound: no record for the presented token.
//   - ErrExpired: the record exists but its lifetime lapsed. Ordinary
//     expiry is not evidence of theft, so the chain survives.
//   - ErrReused: the record was already rotated or revoked. Someone is
//     replaying a dead token, so the entire chain is revoked and the
//     caller must re-authenticate.
//
// The rotation itself is a single conditional update plus insert inside
// one transaction, so the same token can never be exchanged twice even
// under concurrent requests across instances.
func (s *TokenService) Refresh(ctx context.Context, presented string) (domain.TokenPair, error) {
	now := time.Now().UTC()
	log := slogx.FromContext(ctx)

	fp := cryptox.FingerprintToken(presented)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrNotFound
		}
		return domain.TokenPair{}, err
	}

	if now.After(rt.ExpiresAt) {
		return domain.TokenPair{}, ErrExpired
	}

	if rt.Revoked {
		// Replay of an already-rotated token: theft signal. Revoke every
		// link so the thief's stolen successor dies too.
		if err := s.Store.RefreshTokens().RevokeChain(ctx, rt.ChainID, now); err != nil {
			log.Error("chain revocation after reuse failed", "chain_id", rt.ChainID, "err", err)
		}
		log.Warn("refresh token reuse detected", "chain_id", rt.ChainID, "user_id", rt.UserID)
		return domain.TokenPair{}, ErrReused
	}

	// Role and active status are re-read from the user record, not taken
	// from the old token, so role changes and deactivation apply now.
	u, err := s.Users.GetUserByID(ctx, rt.UserID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !u.Active {
		return domain.TokenPair{}, ErrForbidden
	}

	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, err
	}
	successor := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    rt.UserID,
		TokenHash: cryptox.FingerprintToken(opaque),
		ChainID:   rt.ChainID,
		Replaces:  &rt.ID,
		ExpiresAt: now.Add(s.RefreshTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		rotated, err := tx.RefreshTokens().MarkRotated(ctx, rt.ID, successor.ID, now)
		if err != nil {
			return err
		}
		if !rotated {
			return errRotationLost
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, successor)
	})
	if err != nil {
		if errors.Is(err, errRotationLost) {
			// A concurrent request won the conditional update, which means
			// this same token was presented twice. Same theft policy.
			if rerr := s.Store.RefreshTokens().RevokeChain(ctx, rt.ChainID, now); rerr != nil {
				log.Error("chain revocation after rotation race failed", "chain_id", rt.ChainID, "err", rerr)
			}
			log.Warn("concurrent refresh token exchange detected", "chain_id", rt.ChainID, "user_id", rt.UserID)
			return domain.TokenPair{}, ErrReused
		}
		return domain.TokenPair{}, err
	}

	access, err := s.Codec.IssueAccessToken(u.ID, u.Role.String(), now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: opaque,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.Codec.AccessTTL().Seconds()),
	}, nil
}

// Logout revokes the presented refresh token's whole chain. The paired
// access token is stateless and simply ages out.
func (s *TokenService) Logout(ctx context.Context, presented string) error {
	now := time.Now().UTC()

	fp := cryptox.FingerprintToken(presented)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.Store.RefreshTokens().RevokeChain(ctx, rt.ChainID, now)
}
