// README: Tests for the public /generate-itinerary relay.
package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"wayfarer/internal/ai"
	"wayfarer/internal/http/handlers"
)

type fakeRelay struct {
	configured bool
	body       []byte
	err        error
	model      string
	messages   string
}

func (f *fakeRelay) Configured() bool { return f.configured }

func (f *fakeRelay) Relay(_ context.Context, model string, messages json.RawMessage) ([]byte, error) {
	f.model, f.messages = model, string(messages)
	return f.body, f.err
}

func buildShimRouter(relay handlers.Relayer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handlers.NewShimHandler(relay, nil)
	r.Any("/generate-itinerary", h.GenerateItinerary)
	r.GET("/health", h.Health)
	return r
}

const shimBody = `{"messages":[{"role":"user","content":"去北京"}]}`

func TestShim_RelaysBodyVerbatimWithDefaultModel(t *testing.T) {
	vendor := []byte(`{"output":{"choices":[{"message":{"role":"assistant","content":"{\"days\":[]}"}}]},"request_id":"r1"}`)
	relay := &fakeRelay{configured: true, body: vendor}
	w := doRequest(buildShimRouter(relay), http.MethodPost, "/generate-itinerary", shimBody, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != string(vendor) {
		t.Errorf("body was not relayed verbatim: %s", w.Body.String())
	}
	if relay.model != "qwen-turbo" {
		t.Errorf("expected default model qwen-turbo, got %q", relay.model)
	}
	if relay.messages != `[{"role":"user","content":"去北京"}]` {
		t.Errorf("unexpected messages %s", relay.messages)
	}
}

func TestShim_ExplicitModel(t *testing.T) {
	relay := &fakeRelay{configured: true, body: []byte(`{}`)}
	doRequest(buildShimRouter(relay), http.MethodPost, "/generate-itinerary",
		`{"messages":[],"model":"qwen-plus"}`, "")
	if relay.model != "qwen-plus" {
		t.Errorf("expected qwen-plus, got %q", relay.model)
	}
}

func TestShim_InvalidBody(t *testing.T) {
	for _, body := range []string{`not json`, `{"messages":"hi"}`, `{}`} {
		w := doRequest(buildShimRouter(&fakeRelay{configured: true}), http.MethodPost, "/generate-itinerary", body, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
		if w.Body.String() != `{"error":"Invalid request body"}` {
			t.Errorf("%s: unexpected body %s", body, w.Body.String())
		}
	}
}

func TestShim_MissingCredentials(t *testing.T) {
	w := doRequest(buildShimRouter(&fakeRelay{}), http.MethodPost, "/generate-itinerary", shimBody, "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if w.Body.String() != `{"error":"API key not configured"}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestShim_VendorErrorKeepsStatusAndDetails(t *testing.T) {
	relay := &fakeRelay{configured: true, err: &ai.TransportError{
		Provider:   "dashscope",
		StatusCode: http.StatusUnauthorized,
		Body:       `{"code":"InvalidApiKey","message":"Invalid API-key provided."}`,
	}}
	w := doRequest(buildShimRouter(relay), http.MethodPost, "/generate-itinerary", shimBody, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var resp struct {
		Error   string         `json:"error"`
		Details map[string]any `json:"details"`
	}
	if err := decode(w, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "Invalid API-key provided." || resp.Details["code"] != "InvalidApiKey" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestShim_VendorErrorWithoutMessage(t *testing.T) {
	relay := &fakeRelay{configured: true, err: &ai.TransportError{StatusCode: http.StatusBadGateway, Body: "upstream down"}}
	w := doRequest(buildShimRouter(relay), http.MethodPost, "/generate-itinerary", shimBody, "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if w.Body.String() != `{"error":"API request failed","details":"upstream down"}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestShim_TimeoutAndTransportFailure(t *testing.T) {
	relay := &fakeRelay{configured: true, err: &ai.TransportError{Timeout: true, Err: context.DeadlineExceeded}}
	w := doRequest(buildShimRouter(relay), http.MethodPost, "/generate-itinerary", shimBody, "")
	if w.Code != http.StatusRequestTimeout || w.Body.String() != `{"error":"Request timeout"}` {
		t.Errorf("expected 408 Request timeout, got %d %s", w.Code, w.Body.String())
	}

	relay.err = &ai.TransportError{Err: errors.New("connection refused")}
	w = doRequest(buildShimRouter(relay), http.MethodPost, "/generate-itinerary", shimBody, "")
	if w.Code != http.StatusInternalServerError || w.Body.String() != `{"error":"Internal server error"}` {
		t.Errorf("expected 500 Internal server error, got %d %s", w.Code, w.Body.String())
	}
}

func TestShim_Methods(t *testing.T) {
	r := buildShimRouter(&fakeRelay{configured: true})

	w := doRequest(r, http.MethodOptions, "/generate-itinerary", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("OPTIONS: expected 200, got %d", w.Code)
	}
	w = doRequest(r, http.MethodGet, "/generate-itinerary", nil, "")
	if w.Code != http.StatusMethodNotAllowed || w.Body.String() != `{"error":"Method not allowed"}` {
		t.Errorf("GET: expected 405, got %d %s", w.Code, w.Body.String())
	}
	w = doRequest(r, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK || w.Body.String() != `{"status":"ok"}` {
		t.Errorf("health: unexpected %d %s", w.Code, w.Body.String())
	}
}
