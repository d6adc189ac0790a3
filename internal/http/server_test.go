package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/infra"
)

type okRelay struct{}

func (okRelay) Configured() bool { return true }

func (okRelay) Relay(context.Context, string, json.RawMessage) ([]byte, error) {
	return []byte(`{"output":{"text":"ok"}}`), nil
}

type denyAll struct{}

func (denyAll) VerifyIDToken(context.Context, string) (*infra.FirebaseToken, error) {
	return nil, context.Canceled
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestShimEngine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewServer(ServerDeps{Relay: okRelay{}}).Shim()

	w := serve(h, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())

	w = serve(h, httptest.NewRequest(http.MethodDelete, "/health/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = serve(h, httptest.NewRequest(http.MethodPut, "/generate-itinerary", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/generate-itinerary/", strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Content-Type", "application/json")
	w = serve(h, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"output":{"text":"ok"}}`, w.Body.String())
}

func TestShimEnginePreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewServer(ServerDeps{Relay: okRelay{}}).Shim()

	req := httptest.NewRequest(http.MethodOptions, "/generate-itinerary", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := serve(h, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoutesRestrictedOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewServer(ServerDeps{
		Relay:        okRelay{},
		Verifier:     denyAll{},
		AllowOrigins: []string{"https://app.example.com"},
	}).Routes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(h, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(h, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRoutesRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewServer(ServerDeps{Relay: okRelay{}, Verifier: denyAll{}}).Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/plans", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	w := serve(h, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(h, httptest.NewRequest(http.MethodDelete, "/api/plans", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String())
}
