// README: Expense store backed by PostgreSQL.
package expense

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wayfarer/internal/itinerary"
	"wayfarer/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const expenseColumns = `id::text, plan_id::text, category, amount, description, location, spent_on, created_at, updated_at`

func (s *Store) Create(ctx context.Context, e *Expense) error {
	spent, err := time.Parse(itinerary.DateLayout, e.Date)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO expenses (id, plan_id, category, amount, description, location, spent_on, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(e.ID), string(e.PlanID), string(e.Category), e.Amount, e.Description, e.Location,
		spent, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Expense, error) {
	row := s.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, string(id))
	e, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// ListByPlan returns the plan's expenses, most recent date first.
func (s *Store) ListByPlan(ctx context.Context, planID types.ID) ([]Expense, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE plan_id = $1
		ORDER BY spent_on DESC, created_at DESC`, string(planID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, e *Expense) error {
	spent, err := time.Parse(itinerary.DateLayout, e.Date)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE expenses
		SET category = $1, amount = $2, description = $3, location = $4, spent_on = $5, updated_at = $6
		WHERE id = $7`,
		string(e.Category), e.Amount, e.Description, e.Location, spent, e.UpdatedAt, string(e.ID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) TotalsByCategory(ctx context.Context, planID types.ID) (map[Category]CategoryTotal, error) {
	rows, err := s.db.Query(ctx, `
		SELECT category, COALESCE(SUM(amount), 0), COUNT(*)
		FROM expenses
		WHERE plan_id = $1
		GROUP BY category`, string(planID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := map[Category]CategoryTotal{}
	for rows.Next() {
		var c string
		var t CategoryTotal
		if err := rows.Scan(&c, &t.Amount, &t.Count); err != nil {
			return nil, err
		}
		totals[Category(c)] = t
	}
	return totals, rows.Err()
}

func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
	var category string
	var spent time.Time
	err := row.Scan(&e.ID, &e.PlanID, &category, &e.Amount, &e.Description, &e.Location,
		&spent, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Category = Category(category)
	e.Date = spent.Format(itinerary.DateLayout)
	return &e, nil
}
