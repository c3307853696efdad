package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
)

type verificationsRepo struct {
	db dbtx
}

func (r *verificationsRepo) CreateVerification(ctx context.Context, v domain.Verification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verifications (id, token_hash, user_id, purpose, new_email,
			expires_at, used_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?)`,
		v.ID, v.TokenHash, v.UserID, string(v.Purpose), mapOptionalString(v.NewEmail),
		v.ExpiresAt.UTC(), v.CreatedAt.UTC(),
	)
	return mapConflict(err)
}

func (r *verificationsRepo) GetVerificationByTokenHash(
	ctx context.Context,
	hash string,
	purpose domain.VerificationPurpose,
) (domain.Verification, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, token_hash, user_id, purpose, new_email, expires_at, used_at, created_at
		FROM verifications WHERE token_hash = ? AND purpose = ?`,
		hash, string(purpose))

	var (
		v        domain.Verification
		p        string
		newEmail sql.NullString
		usedAt   sql.NullTime
	)
	err := row.Scan(&v.ID, &v.TokenHash, &v.UserID, &p, &newEmail, &v.ExpiresAt, &usedAt, &v.CreatedAt)
	if err != nil {
		return domain.Verification{}, mapNotFound(err)
	}
	v.Purpose = domain.VerificationPurpose(p)
	v.NewEmail = mapNullStringPtr(newEmail)
	v.UsedAt = mapNullTimePtr(usedAt)
	return v, nil
}

// MarkVerificationUsed consumes the token exactly once: the used_at IS NULL
// guard makes concurrent consumption attempts race on a single row update.
func (r *verificationsRepo) MarkVerificationUsed(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE verifications SET used_at = ?
		WHERE id = ? AND used_at IS NULL`,
		now.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *verificationsRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM verifications WHERE expires_at <= ?`, now.UTC())
	return err
}
