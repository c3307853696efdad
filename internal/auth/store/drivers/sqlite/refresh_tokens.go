package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, chain_id, replaces,
			replaced_by, expires_at, revoked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, t.ChainID, mapOptionalString(t.Replaces),
		mapOptionalString(t.ReplacedBy), t.ExpiresAt.UTC(), t.Revoked,
		t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	return mapConflict(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, chain_id, replaces, replaced_by,
			expires_at, revoked, created_at, updated_at
		FROM refresh_tokens WHERE token_hash = ?`, hash)

	var (
		t          domain.RefreshToken
		replaces   sql.NullString
		replacedBy sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ChainID, &replaces, &replacedBy,
		&t.ExpiresAt, &t.Revoked, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.Replaces = mapNullStringPtr(replaces)
	t.ReplacedBy = mapNullStringPtr(replacedBy)
	return t, nil
}

// MarkRotated is the rotation race gate: the WHERE clause only matches a
// still-live row, so two concurrent exchanges of the same token cannot
// both succeed. The loser observes zero affected rows.
func (r *refreshTokensRepo) MarkRotated(ctx context.Context, tokenID, successorID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked = 1, replaced_by = ?, updated_at = ?
		WHERE id = ? AND revoked = 0 AND replaced_by IS NULL`,
		successorID, now.UTC(), tokenID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) RevokeChain(ctx context.Context, chainID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked = 1, updated_at = ?
		WHERE chain_id = ? AND revoked = 0 AND expires_at > ?`,
		now.UTC(), chainID, now.UTC())
	return err
}

func (r *refreshTokensRepo) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked = 1, updated_at = ?
		WHERE user_id = ? AND revoked = 0`,
		now.UTC(), userID)
	return err
}

func (r *refreshTokensRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ?`, now.UTC())
	return err
}
