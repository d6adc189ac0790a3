// README: DashScope (Alibaba Bailian) text-generation client.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	DashScopeEndpoint     = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"
	DefaultDashScopeModel = "qwen-turbo"

	dashScopeTemperature = 0.7
	dashScopeMaxTokens   = 4000
)

type DashScopeConfig struct {
	APIKey   string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// DashScope implements Generator and also relays raw bodies for the public
// /generate-itinerary shim.
type DashScope struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
}

func NewDashScope(cfg DashScopeConfig) *DashScope {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DashScopeEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultDashScopeModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &DashScope{
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (d *DashScope) Name() string { return "dashscope" }

// Configured reports whether an API key is present.
func (d *DashScope) Configured() bool { return d.apiKey != "" }

type dashScopeParameters struct {
	ResultFormat string  `json:"result_format"`
	Temperature  float32 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
}

type dashScopeRequest struct {
	Model      string              `json:"model"`
	Messages   json.RawMessage     `json:"messages"`
	Input      dashScopeInput      `json:"input"`
	Parameters dashScopeParameters `json:"parameters"`
}

type dashScopeInput struct {
	Messages json.RawMessage `json:"messages"`
}

type dashScopeResponse struct {
	Output struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
		Text string `json:"text"`
	} `json:"output"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func (d *DashScope) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	encoded, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("dashscope: marshal messages: %w", err)
	}
	body, err := d.post(ctx, d.model, encoded, opts)
	if err != nil {
		return "", err
	}

	var resp dashScopeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &TransportError{Provider: d.Name(), Body: truncateBody(body), Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(resp.Output.Choices) > 0 {
		return resp.Output.Choices[0].Message.Content, nil
	}
	if resp.Output.Text != "" {
		return resp.Output.Text, nil
	}
	return "", &TransportError{Provider: d.Name(), Body: truncateBody(body), Err: errors.New("response has no choices")}
}

// Relay forwards an already-encoded messages array with the given model and
// returns the vendor body untouched.
func (d *DashScope) Relay(ctx context.Context, model string, messages json.RawMessage) ([]byte, error) {
	if model == "" {
		model = d.model
	}
	return d.post(ctx, model, messages, Options{})
}

func (d *DashScope) post(ctx context.Context, model string, messages json.RawMessage, opts Options) ([]byte, error) {
	if d.apiKey == "" {
		return nil, ErrNotConfigured
	}
	params := dashScopeParameters{ResultFormat: "message", Temperature: dashScopeTemperature, MaxTokens: dashScopeMaxTokens}
	if opts.Temperature > 0 {
		params.Temperature = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = opts.MaxTokens
	}
	reqBody, err := json.Marshal(dashScopeRequest{
		Model:      model,
		Messages:   messages,
		Input:      dashScopeInput{Messages: messages},
		Parameters: params,
	})
	if err != nil {
		return nil, fmt.Errorf("dashscope: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("dashscope: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: d.Name(), Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: d.Name(), Timeout: isTimeout(err), Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Provider: d.Name(), StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncateBody(b []byte) string {
	const limit = 500
	r := []rune(strings.ToValidUTF8(string(b), ""))
	if len(r) > limit {
		return string(r[:limit])
	}
	return string(r)
}
