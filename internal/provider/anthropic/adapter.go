// Package anthropic sends translated requests to Anthropic's Messages API,
// grounded on the teacher pack's internal/adapter/anthropic/anthropic.go raw
// HTTP shape. Request/response shape conversion itself lives in
// internal/translation; this package owns only the transport.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oftenai/often-gateway/internal/chatapi"
	"github.com/oftenai/often-gateway/internal/provider"
	"github.com/oftenai/often-gateway/internal/translation"
)

const defaultAPIVersion = "2023-06-01"

var _ provider.Provider = (*Adapter)(nil)

// Adapter implements provider.Provider against the Anthropic Messages API.
type Adapter struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

// New creates an Anthropic adapter targeting baseURL.
func New(baseURL string, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Adapter{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiVersion: defaultAPIVersion,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the provider tag.
func (a *Adapter) Name() string { return "anthropic" }

// UpstreamError carries the status code and body of a non-2xx Anthropic
// response, so callers can pass it through verbatim (§4.6 step 6).
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("anthropic: upstream returned %d: %s", e.StatusCode, e.Detail)
}

// Status lets internal/ledger classify this error without importing
// anthropic's concrete type.
func (e *UpstreamError) Status() (int, string) { return e.StatusCode, e.Detail }

// Complete translates req to Anthropic's shape, sends it, and translates the
// reply back to the canonical shape.
func (a *Adapter) Complete(ctx context.Context, apiKey string, req chatapi.Request) (chatapi.Response, error) {
	anthropicReq, err := translation.ToAnthropicRequest(req)
	if err != nil {
		return chatapi.Response{}, err
	}

	payload, err := json.Marshal(anthropicReq)
	if err != nil {
		return chatapi.Response{}, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return chatapi.Response{}, fmt.Errorf("anthropic: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", a.apiVersion)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return chatapi.Response{}, fmt.Errorf("anthropic: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return chatapi.Response{}, fmt.Errorf("anthropic: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		detail := string(raw)
		var envelope struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
			detail = envelope.Error.Message
		}
		return chatapi.Response{}, &UpstreamError{StatusCode: resp.StatusCode, Detail: detail}
	}

	var anthropicResp translation.AnthropicResponse
	if err := json.Unmarshal(raw, &anthropicResp); err != nil {
		return chatapi.Response{}, fmt.Errorf("anthropic: unmarshal response: %w", err)
	}

	return translation.FromAnthropicResponse(anthropicResp, time.Now()), nil
}
