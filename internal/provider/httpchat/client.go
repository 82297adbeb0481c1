// Package httpchat is a plain HTTP chat-completions client shared by the
// google, mistral, and together adapters — all three vendors' chat
// endpoints are OpenAI-shape-compatible for the fields this gateway uses
// (model, messages, usage), so one raw-HTTP client body serves all three.
// Grounded on the teacher's internal/provider/openai/client.go.
package httpchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oftenai/often-gateway/internal/chatapi"
	"github.com/oftenai/often-gateway/internal/provider"
)

var _ provider.Provider = (*Client)(nil)

// Client posts canonical chat-completion requests to an OpenAI-compatible
// endpoint at baseURL + "/chat/completions", authenticating with a bearer
// token built by authHeader.
type Client struct {
	name       string
	baseURL    string
	authHeader func(secret string) (string, string)
	httpClient *http.Client
}

// New creates a client for one provider tag.
func New(name, baseURL string, authHeader func(secret string) (string, string), timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		name:       name,
		baseURL:    baseURL,
		authHeader: authHeader,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the provider tag.
func (c *Client) Name() string { return c.name }

type wireRequest struct {
	Model       string           `json:"model"`
	Messages    []chatapi.Message `json:"messages"`
	Temperature *float64         `json:"temperature,omitempty"`
	TopP        *float64         `json:"top_p,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
}

type wireResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int             `json:"index"`
		Message      chatapi.Message `json:"message"`
		FinishReason string          `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

type wireErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// UpstreamError carries a status code and body for callers that need to
// pass the upstream failure through verbatim (§4.6 step 6).
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("httpchat: upstream returned %d: %s", e.StatusCode, e.Detail)
}

// Status lets internal/ledger classify this error without importing
// httpchat's concrete type.
func (e *UpstreamError) Status() (int, string) { return e.StatusCode, e.Detail }

// Complete sends req upstream and returns the canonical response.
func (c *Client) Complete(ctx context.Context, apiKey string, req chatapi.Request) (chatapi.Response, error) {
	body := wireRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return chatapi.Response{}, fmt.Errorf("httpchat: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return chatapi.Response{}, fmt.Errorf("httpchat: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authHeader != nil {
		header, value := c.authHeader(apiKey)
		httpReq.Header.Set(header, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return chatapi.Response{}, fmt.Errorf("httpchat: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return chatapi.Response{}, fmt.Errorf("httpchat: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		detail := string(raw)
		var envelope wireErrorEnvelope
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
			detail = envelope.Error.Message
		}
		return chatapi.Response{}, &UpstreamError{StatusCode: resp.StatusCode, Detail: detail}
	}

	var parsed wireResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return chatapi.Response{}, fmt.Errorf("httpchat: unmarshal response: %w", err)
	}

	out := chatapi.Response{
		ID: parsed.ID, Object: "chat.completion", Created: parsed.Created, Model: parsed.Model,
		Usage: chatapi.Usage{
			PromptTokens: parsed.Usage.PromptTokens, CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens: parsed.Usage.TotalTokens,
		},
	}
	for _, ch := range parsed.Choices {
		out.Choices = append(out.Choices, chatapi.Choice{
			Index: ch.Index, Message: ch.Message, FinishReason: ch.FinishReason,
		})
	}
	return out, nil
}
