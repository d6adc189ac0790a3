// README: Normalizer turns raw generation text into a validated Itinerary.
package itinerary

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Result is a recovered itinerary. Warning is a *PartialResultError when
// fewer days than expected were recovered, nil otherwise.
type Result struct {
	Itinerary *Itinerary
	Stage     string
	Warning   error
}

// Partial reports whether the result carries a partial-result warning.
func (r *Result) Partial() bool {
	return r != nil && errors.Is(r.Warning, ErrPartialResult)
}

type Normalizer struct {
	logger    *zap.Logger
	stages    []stage
	startDate time.Time
}

type Option func(*Normalizer)

func WithLogger(logger *zap.Logger) Option {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithStartDate aligns day dates to start, start+1, ... after validation.
func WithStartDate(start time.Time) Option {
	return func(n *Normalizer) { n.startDate = start }
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{logger: zap.NewNop(), stages: defaultStages()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize runs raw through a Normalizer with default options.
func Normalize(raw string, expectedDays int) (*Result, error) {
	return NewNormalizer().Normalize(raw, expectedDays)
}

func (n *Normalizer) Normalize(raw string, expectedDays int) (*Result, error) {
	if expectedDays <= 0 {
		return nil, fmt.Errorf("itinerary: expected days must be positive, got %d", expectedDays)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, n.fail(ErrUnparseable, raw, nil)
	}

	var attempts []Attempt
	sawDocument := false
	for _, st := range n.stages {
		doc, err := st.parse(raw)
		if err == nil {
			return n.validate(doc, st.name, raw, expectedDays)
		}
		if errors.Is(err, errDeclined) {
			continue
		}
		if errors.Is(err, errNoDayList) {
			sawDocument = true
		}
		attempts = append(attempts, Attempt{Stage: st.name, Err: err})
		n.logger.Debug("itinerary stage rejected response", zap.String("stage", st.name), zap.Error(err))
	}
	if sawDocument {
		return nil, n.fail(ErrEmptyItinerary, raw, attempts)
	}
	return nil, n.fail(ErrUnparseable, raw, attempts)
}

func (n *Normalizer) validate(doc *document, stage, raw string, expectedDays int) (*Result, error) {
	days := doc.Days
	if len(days) == 0 {
		return nil, n.fail(ErrEmptyItinerary, raw, nil)
	}
	if len(days) > expectedDays {
		n.logger.Info("truncating surplus itinerary days",
			zap.Int("expected", expectedDays), zap.Int("got", len(days)))
		days = days[:expectedDays]
	}

	it := &Itinerary{Days: days, TotalCost: doc.TotalCost, Recommendations: doc.Recommendations}
	it.Sanitize()
	if !n.startDate.IsZero() {
		it.AlignDates(n.startDate)
	}

	res := &Result{Itinerary: it, Stage: stage}
	if len(days) < expectedDays {
		res.Warning = &PartialResultError{Expected: expectedDays, Got: len(days)}
		n.logger.Warn("partial itinerary recovered",
			zap.String("stage", stage), zap.Int("expected", expectedDays), zap.Int("got", len(days)))
	}
	return res, nil
}

func (n *Normalizer) fail(kind error, raw string, attempts []Attempt) error {
	err := &NormalizationError{Kind: kind, Diagnostic: truncateDiagnostic(raw), Attempts: attempts}
	n.logger.Warn("itinerary normalization failed", zap.Error(err), zap.String("diagnostic", err.Diagnostic))
	return err
}
