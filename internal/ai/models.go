package ai

import (
	"context"
	"errors"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to a generation vendor.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single generation call. Zero values fall back to the
// generator's defaults.
type Options struct {
	Temperature float32
	MaxTokens   int
	// JSON asks vendors that support it for a JSON-only response.
	JSON bool
}

// Generator returns the raw text content produced for a conversation.
// The text is not interpreted; callers normalize it.
type Generator interface {
	Name() string
	Generate(ctx context.Context, messages []Message, opts Options) (string, error)
}

var ErrNotConfigured = errors.New("generation vendor credentials not configured")

// TransportError covers vendor and network failures. StatusCode is zero when
// no HTTP response was received.
type TransportError struct {
	Provider   string
	StatusCode int
	Body       string
	Timeout    bool
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: request timed out", e.Provider)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: vendor returned status %d", e.Provider, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	default:
		return e.Provider + ": transport failure"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }
