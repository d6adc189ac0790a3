package quota

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store handles generation_quota persistence.
type Store struct {
	db *pgxpool.Pool
}

// NewStore returns a Store backed by the given connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Consume atomically checks the monthly allowance and deducts one generation.
// The counter is reset to allowance when last_reset_month is behind month.
// Returns ErrQuotaExhausted when 0 rows are updated (exhausted or user absent).
func (s *Store) Consume(ctx context.Context, uid, month string, allowance int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE generation_quota SET
			remaining = CASE WHEN last_reset_month != $1 THEN $2 - 1 ELSE remaining - 1 END,
			last_reset_month = $1
		WHERE uid = $3 AND (last_reset_month < $1 OR remaining > 0)
	`, month, allowance, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaExhausted
	}
	return nil
}

// Refund gives one generation back, never above allowance.
func (s *Store) Refund(ctx context.Context, uid, month string, allowance int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE generation_quota SET remaining = LEAST(remaining + 1, $1)
		WHERE uid = $2 AND last_reset_month = $3
	`, allowance, uid, month)
	return err
}

// EnsureUser inserts a row for uid with the full allowance.
// An existing row is left untouched (ON CONFLICT DO NOTHING).
func (s *Store) EnsureUser(ctx context.Context, uid, month string, allowance int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO generation_quota (uid, remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING
	`, uid, allowance, month)
	return err
}

// Remaining reports the stored counter and its month; ok is false for an unknown uid.
func (s *Store) Remaining(ctx context.Context, uid string) (remaining int, month string, ok bool, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT remaining, last_reset_month FROM generation_quota WHERE uid = $1
	`, uid).Scan(&remaining, &month)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}
	return remaining, month, true, nil
}
