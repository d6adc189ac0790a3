// README: Plan store backed by PostgreSQL; the itinerary lives in a JSONB column.
package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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

const planColumns = `id::text, user_id, title, destination, start_date, end_date, budget,
	participants, preferences, itinerary, status, created_at, updated_at`

func (s *Store) Create(ctx context.Context, p *Plan) error {
	start, end, err := parseRange(p.StartDate, p.EndDate)
	if err != nil {
		return err
	}
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return err
	}
	it, err := encodeItinerary(p.Itinerary)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO travel_plans (
			id, user_id, title, destination, start_date, end_date, budget,
			participants, preferences, itinerary, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		string(p.ID), p.UserID, p.Title, p.Destination, start, end, p.Budget,
		p.Participants, prefs, it, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Plan, error) {
	row := s.db.QueryRow(ctx, `SELECT `+planColumns+` FROM travel_plans WHERE id = $1`, string(id))
	p, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// ListByUser returns the user's plans, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Plan, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+planColumns+`
		FROM travel_plans
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// Update writes the editable request fields.
func (s *Store) Update(ctx context.Context, p *Plan) error {
	start, end, err := parseRange(p.StartDate, p.EndDate)
	if err != nil {
		return err
	}
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE travel_plans
		SET title = $1, destination = $2, start_date = $3, end_date = $4,
		    budget = $5, participants = $6, preferences = $7, updated_at = $8
		WHERE id = $9`,
		p.Title, p.Destination, start, end, p.Budget, p.Participants, prefs, p.UpdatedAt, string(p.ID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceItinerary overwrites the whole itinerary document.
func (s *Store) ReplaceItinerary(ctx context.Context, id types.ID, it *itinerary.Itinerary, at time.Time) error {
	doc, err := encodeItinerary(it)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE travel_plans SET itinerary = $1, updated_at = $2 WHERE id = $3`,
		doc, at, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus moves the plan from one status to another and reports whether
// the row was still in the expected status.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE travel_plans SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(to), at, string(id), string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM travel_plans WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPlan(row pgx.Row) (*Plan, error) {
	var p Plan
	var start, end time.Time
	var prefs, doc []byte
	var status string
	err := row.Scan(
		&p.ID, &p.UserID, &p.Title, &p.Destination, &start, &end, &p.Budget,
		&p.Participants, &prefs, &doc, &status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.StartDate = start.Format(itinerary.DateLayout)
	p.EndDate = end.Format(itinerary.DateLayout)
	p.Status = Status(status)
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &p.Preferences); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	if len(doc) > 0 {
		var it itinerary.Itinerary
		if err := json.Unmarshal(doc, &it); err != nil {
			return nil, fmt.Errorf("decode itinerary: %w", err)
		}
		p.Itinerary = &it
	}
	return &p, nil
}

func encodeItinerary(it *itinerary.Itinerary) ([]byte, error) {
	if it == nil {
		return nil, nil
	}
	return json.Marshal(it)
}

func parseRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(itinerary.DateLayout, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start date: %w", err)
	}
	end, err := time.Parse(itinerary.DateLayout, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end date: %w", err)
	}
	return start, end, nil
}
