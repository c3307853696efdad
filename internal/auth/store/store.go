package store

import (
	"context"
	"errors"
	"time"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today,
// postgres later) implement this. Sub-repositories keep concerns tidy and
// let services depend on only what they touch.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	Verifications() Verifications
	Attempts() Attempts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit() or Rollback() the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. This is the recommended way to run
	// multi-step operations that must be atomic (refresh rotation, token
	// consumption).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Same repos, plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is the login lookup.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByUsername is used by signup uniqueness checks.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when the email or username is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the digest and its scheme version.
	UpdatePasswordHash(ctx context.Context, userID, digest string, version int) error

	// UpdateEmail replaces the email and marks it verified, used by the
	// email-change confirm step.
	UpdateEmail(ctx context.Context, userID, email string) error

	// MarkEmailVerified flips the verified flag.
	MarkEmailVerified(ctx context.Context, userID string) error

	// UpdateRole sets the user's role (admin path).
	UpdateRole(ctx context.Context, userID string, role domain.Role) error

	// SetActive toggles the active flag (deactivation).
	SetActive(ctx context.Context, userID string, active bool) error

	// UpdateLastLogin records a successful authentication.
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh-token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record for an opaque token's
	// fingerprint, including revoked and expired records (the caller
	// distinguishes replay from ordinary expiry).
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// MarkRotated atomically revokes the token and links its successor:
	// a single conditional update that only fires while the token is
	// still live. Returns false when the token was already revoked, which
	// under rotation means the same token was presented twice.
	MarkRotated(ctx context.Context, tokenID, successorID string, now time.Time) (bool, error)

	// RevokeChain revokes every unexpired token in a rotation chain.
	RevokeChain(ctx context.Context, chainID string, now time.Time) error

	// RevokeAllForUser revokes every live token across all of a user's
	// chains (password change/reset, deactivation).
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) error

	// DeleteExpired is retention housekeeping.
	DeleteExpired(ctx context.Context, now time.Time) error
}

type Verifications interface {
	// CreateVerification writes a pending single-use token record.
	CreateVerification(ctx context.Context, v domain.Verification) error

	// GetVerificationByTokenHash fetches a record by fingerprint and purpose.
	GetVerificationByTokenHash(ctx context.Context, hash string, purpose domain.VerificationPurpose) (domain.Verification, error)

	// MarkVerificationUsed consumes the token: conditional update that
	// only fires while used_at is still NULL. Returns false when the
	// token was already consumed.
	MarkVerificationUsed(ctx context.Context, id string, now time.Time) (bool, error)

	// DeleteExpired is retention housekeeping.
	DeleteExpired(ctx context.Context, now time.Time) error
}

type Attempts interface {
	// GetWindow returns the current attempt window for (identity, action),
	// or ErrNotFound when no attempts are recorded.
	GetWindow(ctx context.Context, identity, action string) (domain.AttemptWindow, error)

	// Increment atomically bumps the counter, starting a fresh window when
	// the existing one began at or before cutoff. Single upsert statement
	// so concurrent failures from the same identity cannot lose counts.
	Increment(ctx context.Context, identity, action string, now, cutoff time.Time) (domain.AttemptWindow, error)

	// Reset clears the window after a successful authentication.
	Reset(ctx context.Context, identity, action string) error

	// DeleteStale drops windows that started before cutoff (housekeeping).
	DeleteStale(ctx context.Context, cutoff time.Time) error
}
