package itinerary

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DiagnosticLimit bounds how much raw model text a failure carries.
const DiagnosticLimit = 500

var (
	ErrUnparseable    = errors.New("unparseable model response")
	ErrEmptyItinerary = errors.New("model response has no itinerary days")
	ErrPartialResult  = errors.New("model returned fewer days than requested")
)

// Attempt records why one pipeline stage rejected the text.
type Attempt struct {
	Stage string
	Err   error
}

// NormalizationError is returned when no itinerary could be recovered.
// It unwraps to ErrUnparseable or ErrEmptyItinerary.
type NormalizationError struct {
	Kind       error
	Diagnostic string
	Attempts   []Attempt
}

func (e *NormalizationError) Error() string {
	if len(e.Attempts) == 0 {
		return "itinerary: " + e.Kind.Error()
	}
	stages := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		stages = append(stages, a.Stage)
	}
	return fmt.Sprintf("itinerary: %s (tried %s)", e.Kind, strings.Join(stages, ", "))
}

func (e *NormalizationError) Unwrap() error { return e.Kind }

// PartialResultError is the warning attached to a Result that recovered
// fewer days than expected.
type PartialResultError struct {
	Expected int
	Got      int
}

func (e *PartialResultError) Error() string {
	return fmt.Sprintf("itinerary: expected %d days, got %d", e.Expected, e.Got)
}

func (e *PartialResultError) Unwrap() error { return ErrPartialResult }

func truncateDiagnostic(s string) string {
	if utf8.RuneCountInString(s) <= DiagnosticLimit {
		return s
	}
	return string([]rune(s)[:DiagnosticLimit])
}
