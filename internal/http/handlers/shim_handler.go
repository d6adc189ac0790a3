// README: Public /generate-itinerary relay and /health, matching the legacy Node shim.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wayfarer/internal/ai"
)

// Relayer forwards a messages array to the generation vendor and returns its body.
type Relayer interface {
	Configured() bool
	Relay(ctx context.Context, model string, messages json.RawMessage) ([]byte, error)
}

type ShimHandler struct {
	relay  Relayer
	logger *zap.Logger
}

func NewShimHandler(relay Relayer, logger *zap.Logger) *ShimHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShimHandler{relay: relay, logger: logger}
}

type shimRequest struct {
	Messages json.RawMessage `json:"messages"`
	Model    string          `json:"model"`
}

type shimVendorError struct {
	Error   string `json:"error"`
	Details any    `json:"details"`
}

// GenerateItinerary handles every method on /generate-itinerary.
func (h *ShimHandler) GenerateItinerary(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodOptions:
		c.Status(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeError(c, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req shimRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil || !isJSONArray(req.Messages) {
		writeError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.relay.Configured() {
		writeError(c, http.StatusInternalServerError, "API key not configured")
		return
	}
	if req.Model == "" {
		req.Model = ai.DefaultDashScopeModel
	}

	body, err := h.relay.Relay(c.Request.Context(), req.Model, req.Messages)
	if err != nil {
		h.writeRelayError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (h *ShimHandler) writeRelayError(c *gin.Context, err error) {
	h.logger.Warn("generation relay failed", zap.Error(err))

	var terr *ai.TransportError
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		writeError(c, http.StatusInternalServerError, "API key not configured")
	case errors.As(err, &terr) && terr.StatusCode != 0:
		var details any = terr.Body
		msg := "API request failed"
		var parsed map[string]any
		if json.Unmarshal([]byte(terr.Body), &parsed) == nil {
			details = parsed
			if m, ok := parsed["message"].(string); ok && m != "" {
				msg = m
			}
		}
		writeJSON(c, terr.StatusCode, shimVendorError{Error: msg, Details: details})
	case errors.As(err, &terr) && terr.Timeout:
		writeError(c, http.StatusRequestTimeout, "Request timeout")
	default:
		writeError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *ShimHandler) Health(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func isJSONArray(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
}
