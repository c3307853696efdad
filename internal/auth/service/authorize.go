package service

import (
	"context"
	"errors"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
)

// Authorizer evaluates whether a subject may perform a role-gated action.
// The user row is loaded (through the user cache) rather than trusted from
// token claims, because deactivation must take effect before the access
// token expires.
type Authorizer struct {
	Users *UserService
}

// Authorize fails with ErrForbidden unless the subject exists, is active,
// and holds at least the required role. The deactivated check runs first:
// a deactivated admin is still locked out.
func (a *Authorizer) Authorize(ctx context.Context, userID string, required domain.Role) error {
	u, err := a.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrForbidden
		}
		return err
	}

	if !u.Active {
		return ErrForbidden
	}
	if !u.Role.Satisfies(required) {
		return ErrForbidden
	}
	return nil
}
