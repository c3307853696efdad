package service

import (
	"context"
	"errors"
	"time"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
	"github.com/leafmarks/leafmarks/internal/auth/store"
	"github.com/leafmarks/leafmarks/pkg/cachex"
)

// UserService reads and mutates user records. Reads go through a TTL cache;
// every write path invalidates the cached entry before returning, so other
// instances are stale for at most the TTL and this instance never is.
type UserService struct {
	Store store.Store
	Cache cachex.Cache[domain.User]
}

func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	if s.Cache != nil {
		if u, ok := s.Cache.Get(userID); ok {
			return u, nil
		}
	}

	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}

	if s.Cache != nil {
		s.Cache.Set(userID, u)
	}
	return u, nil
}

// Invalidate drops the cached entry after any write to the user row.
func (s *UserService) Invalidate(userID string) {
	if s.Cache != nil {
		s.Cache.Delete(userID)
	}
}

// SetRole changes a user's role (admin path). Takes effect on the next
// token refresh, since the role is re-read from the store on rotation.
func (s *UserService) SetRole(ctx context.Context, userID string, role domain.Role) error {
	if err := s.Store.Users().UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.Invalidate(userID)
	return nil
}

// Deactivate disables the account and revokes every outstanding refresh
// chain so no device can mint new access tokens.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetActive(ctx, userID, false); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllForUser(ctx, userID, now)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.Invalidate(userID)
	return nil
}
