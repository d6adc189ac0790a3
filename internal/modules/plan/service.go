// README: Plan service implements ownership checks, edits and status transitions.
package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wayfarer/internal/itinerary"
	"wayfarer/internal/types"
)

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("plan not found")
	ErrForbidden    = errors.New("plan belongs to another user")
	ErrConflict     = errors.New("plan state conflict")
	ErrBadRequest   = errors.New("bad request")
)

// Repository is the persistence the service needs; *Store implements it.
type Repository interface {
	Create(ctx context.Context, p *Plan) error
	Get(ctx context.Context, id types.ID) (*Plan, error)
	ListByUser(ctx context.Context, userID string) ([]Plan, error)
	Update(ctx context.Context, p *Plan) error
	ReplaceItinerary(ctx context.Context, id types.ID, it *itinerary.Itinerary, at time.Time) error
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, at time.Time) (bool, error)
	Delete(ctx context.Context, id types.ID) error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

type CreateCommand struct {
	UserID    string
	Title     string
	Request   itinerary.PlanningRequest
	Itinerary *itinerary.Itinerary
}

// UpdateCommand carries optional field edits; nil fields are left unchanged.
type UpdateCommand struct {
	UserID       string
	PlanID       types.ID
	Title        *string
	Destination  *string
	StartDate    *string
	EndDate      *string
	Budget       *float64
	Participants *int
	Preferences  *Preferences
}

// Create stores a new plan. It starts as planned when an itinerary is
// attached and as a draft otherwise.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Plan, error) {
	if cmd.UserID == "" {
		return nil, ErrBadRequest
	}
	if err := cmd.Request.Validate(); err != nil {
		return nil, err
	}
	if cmd.Itinerary != nil {
		cmd.Itinerary.Sanitize()
	}
	now := s.now().UTC()
	p := &Plan{
		ID:           types.NewID(),
		UserID:       cmd.UserID,
		Title:        strings.TrimSpace(cmd.Title),
		Destination:  strings.TrimSpace(cmd.Request.Destination),
		StartDate:    cmd.Request.StartDate,
		EndDate:      cmd.Request.EndDate,
		Budget:       cmd.Request.Budget,
		Participants: cmd.Request.Participants,
		Preferences:  Preferences{Interests: cmd.Request.Interests, Notes: cmd.Request.Notes},
		Itinerary:    cmd.Itinerary,
		Status:       StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.Title == "" {
		p.Title = DefaultTitle(cmd.Request)
	}
	if p.Itinerary != nil {
		p.Status = StatusPlanned
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	return p, nil
}

// DefaultTitle names a plan after its destination and length.
func DefaultTitle(req itinerary.PlanningRequest) string {
	return fmt.Sprintf("%s%d日游", strings.TrimSpace(req.Destination), req.Days())
}

// Get returns the plan if userID owns it.
func (s *Service) Get(ctx context.Context, userID string, id types.ID) (*Plan, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Plan, error) {
	if userID == "" {
		return nil, ErrBadRequest
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Update(ctx context.Context, cmd UpdateCommand) (*Plan, error) {
	p, err := s.Get(ctx, cmd.UserID, cmd.PlanID)
	if err != nil {
		return nil, err
	}
	if cmd.Title != nil {
		title := strings.TrimSpace(*cmd.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrBadRequest)
		}
		p.Title = title
	}
	if cmd.Destination != nil {
		p.Destination = strings.TrimSpace(*cmd.Destination)
	}
	if cmd.StartDate != nil {
		p.StartDate = *cmd.StartDate
	}
	if cmd.EndDate != nil {
		p.EndDate = *cmd.EndDate
	}
	if cmd.Budget != nil {
		p.Budget = *cmd.Budget
	}
	if cmd.Participants != nil {
		p.Participants = *cmd.Participants
	}
	if cmd.Preferences != nil {
		p.Preferences = *cmd.Preferences
	}
	if err := p.Request().Validate(); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ReplaceItinerary swaps in a new itinerary wholesale. A draft plan becomes
// planned once it has one.
func (s *Service) ReplaceItinerary(ctx context.Context, userID string, id types.ID, it *itinerary.Itinerary) (*Plan, error) {
	if it == nil || len(it.Days) == 0 {
		return nil, fmt.Errorf("%w: itinerary must have at least one day", ErrBadRequest)
	}
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	it.Sanitize()
	now := s.now().UTC()
	if err := s.repo.ReplaceItinerary(ctx, id, it, now); err != nil {
		return nil, err
	}
	p.Itinerary = it
	p.UpdatedAt = now
	if p.Status == StatusDraft {
		ok, err := s.repo.UpdateStatus(ctx, id, StatusDraft, StatusPlanned, now)
		if err != nil {
			return nil, err
		}
		if ok {
			p.Status = StatusPlanned
		}
	}
	return p, nil
}

// Transition applies a status change if the state machine allows it and the
// stored status has not moved since it was read.
func (s *Service) Transition(ctx context.Context, userID string, id types.ID, to Status) (*Plan, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrBadRequest, to)
	}
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(p.Status, to) {
		return nil, ErrInvalidState
	}
	if to != StatusDraft && p.Itinerary == nil {
		return nil, fmt.Errorf("%w: plan has no itinerary", ErrInvalidState)
	}
	now := s.now().UTC()
	ok, err := s.repo.UpdateStatus(ctx, id, p.Status, to, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	p.Status = to
	p.UpdatedAt = now
	return p, nil
}

func (s *Service) Delete(ctx context.Context, userID string, id types.ID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
