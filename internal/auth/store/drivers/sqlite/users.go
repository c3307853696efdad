package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, username, display_name, password_hash, hash_version,
	role, verified, active, last_login_at, created_at, updated_at`

func (r *usersRepo) scanUser(row *sql.Row) (domain.User, error) {
	var (
		u         domain.User
		role      string
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.DisplayName, &u.PasswordHash, &u.HashVersion,
		&role, &u.Verified, &u.Active, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Role = domain.Role(role)
	u.LastLoginAt = mapNullTimePtr(lastLogin)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, display_name, password_hash, hash_version,
			role, verified, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Username, u.DisplayName, u.PasswordHash, u.HashVersion,
		u.Role.String(), u.Verified, u.Active, u.CreatedAt, u.UpdatedAt,
	)
	return mapConflict(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, digest string, version int) error {
	return r.execOne(ctx, `
		UPDATE users SET password_hash = ?, hash_version = ?, updated_at = ?
		WHERE id = ?`,
		digest, version, time.Now().UTC(), userID)
}

func (r *usersRepo) UpdateEmail(ctx context.Context, userID, email string) error {
	err := r.execOne(ctx, `
		UPDATE users SET email = ?, verified = 1, updated_at = ?
		WHERE id = ?`,
		email, time.Now().UTC(), userID)
	return mapConflict(err)
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, userID string) error {
	return r.execOne(ctx, `
		UPDATE users SET verified = 1, updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), userID)
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	return r.execOne(ctx, `
		UPDATE users SET role = ?, updated_at = ?
		WHERE id = ?`,
		role.String(), time.Now().UTC(), userID)
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	return r.execOne(ctx, `
		UPDATE users SET active = ?, updated_at = ?
		WHERE id = ?`,
		active, time.Now().UTC(), userID)
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.execOne(ctx, `
		UPDATE users SET last_login_at = ?, updated_at = ?
		WHERE id = ?`,
		at.UTC(), at.UTC(), userID)
}

// execOne runs an update that must hit exactly one row, mapping zero rows
// to ErrNotFound.
func (r *usersRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
