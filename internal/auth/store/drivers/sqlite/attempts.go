package sqlite

import (
	"context"
	"time"

	"github.com/leafmarks/leafmarks/internal/auth/domain"
)

type attemptsRepo struct {
	db dbtx
}

func (r *attemptsRepo) GetWindow(ctx context.Context, identity, action string) (domain.AttemptWindow, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT identity, action, count, window_start
		FROM auth_attempts WHERE identity = ? AND action = ?`,
		identity, action)

	var w domain.AttemptWindow
	if err := row.Scan(&w.Identity, &w.Action, &w.Count, &w.WindowStart); err != nil {
		return domain.AttemptWindow{}, mapNotFound(err)
	}
	return w, nil
}

// Increment is a single upsert so concurrent failures for the same identity
// serialize at the row and no count is lost. A window that started at or
// before cutoff is restarted rather than bumped.
func (r *attemptsRepo) Increment(ctx context.Context, identity, action string, now, cutoff time.Time) (domain.AttemptWindow, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO auth_attempts (identity, action, count, window_start)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (identity, action) DO UPDATE SET
			count        = CASE WHEN window_start <= ? THEN 1 ELSE count + 1 END,
			window_start = CASE WHEN window_start <= ? THEN excluded.window_start ELSE window_start END
		RETURNING identity, action, count, window_start`,
		identity, action, now.UTC(), cutoff.UTC(), cutoff.UTC())

	var w domain.AttemptWindow
	if err := row.Scan(&w.Identity, &w.Action, &w.Count, &w.WindowStart); err != nil {
		return domain.AttemptWindow{}, err
	}
	return w, nil
}

func (r *attemptsRepo) Reset(ctx context.Context, identity, action string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_attempts WHERE identity = ? AND action = ?`,
		identity, action)
	return err
}

func (r *attemptsRepo) DeleteStale(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_attempts WHERE window_start <= ?`, cutoff.UTC())
	return err
}
