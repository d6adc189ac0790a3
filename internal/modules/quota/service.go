// README: Generation quota: monthly per-user allowance with lazy reset.
package quota

import (
	"context"
	"time"
)

type Repository interface {
	Consume(ctx context.Context, uid, month string, allowance int) error
	Refund(ctx context.Context, uid, month string, allowance int) error
	EnsureUser(ctx context.Context, uid, month string, allowance int) error
	Remaining(ctx context.Context, uid string) (int, string, bool, error)
}

// Service orchestrates generation-quota logic.
type Service struct {
	repo      Repository
	allowance int
	now       func() time.Time
}

// NewService creates a Service granting allowance generations per month.
func NewService(repo Repository, allowance int) *Service {
	if allowance <= 0 {
		allowance = DefaultAllowance
	}
	return &Service{repo: repo, allowance: allowance, now: time.Now}
}

func (s *Service) month() string {
	return s.now().UTC().Format("2006-01")
}

// Consume deducts one generation from the user's monthly allowance.
// A missing row is initialised and the generation is immediately consumed.
func (s *Service) Consume(ctx context.Context, uid string) error {
	month := s.month()
	err := s.repo.Consume(ctx, uid, month, s.allowance)
	if err != ErrQuotaExhausted {
		return err
	}

	// Row may be missing: try to create it, then retry the deduction once.
	if initErr := s.repo.EnsureUser(ctx, uid, month, s.allowance); initErr != nil {
		return initErr
	}
	return s.repo.Consume(ctx, uid, month, s.allowance)
}

// Refund returns a generation consumed by a call that produced nothing.
func (s *Service) Refund(ctx context.Context, uid string) error {
	return s.repo.Refund(ctx, uid, s.month(), s.allowance)
}

func (s *Service) Usage(ctx context.Context, uid string) (Usage, error) {
	month := s.month()
	u := Usage{UID: uid, Remaining: s.allowance, Allowance: s.allowance, Month: month}
	remaining, stored, ok, err := s.repo.Remaining(ctx, uid)
	if err != nil {
		return Usage{}, err
	}
	if ok && stored == month {
		u.Remaining = remaining
	}
	return u, nil
}
