// Package openai adapts the canonical chat-completion shape to the OpenAI
// SDK, grounded on the teacher's internal/provider/openai/adapter.go. It
// speaks the canonical shape natively — no C3 translation flag — and simply
// maps field names.
package openai

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/oftenai/often-gateway/internal/chatapi"
	"github.com/oftenai/often-gateway/internal/observability"
	"github.com/oftenai/often-gateway/internal/provider"
)

var _ provider.Provider = (*Adapter)(nil)

// Adapter implements provider.Provider against the real OpenAI API.
type Adapter struct {
	baseURL string
	timeout int
}

// New creates an OpenAI adapter targeting baseURL, used by both the openai
// tag (api.openai.com) and any OpenAI-compatible endpoint.
func New(baseURL string, timeoutSeconds int) *Adapter {
	return &Adapter{baseURL: baseURL, timeout: timeoutSeconds}
}

// Name returns the provider tag.
func (a *Adapter) Name() string { return "openai" }

// Complete sends req to the OpenAI chat completions endpoint using apiKey.
func (a *Adapter) Complete(ctx context.Context, apiKey string, req chatapi.Request) (chatapi.Response, error) {
	if apiKey == "" {
		return chatapi.Response{}, errors.New("openai: api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if a.baseURL != "" {
		opts = append(opts, option.WithBaseURL(a.baseURL))
	}
	client := sdk.NewClient(opts...)

	logger := observability.FromContext(ctx)
	logger.Debug("calling openai", observability.String("model", req.Model))

	params := toSDKParams(req)
	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return chatapi.Response{}, &UpstreamError{StatusCode: apiErr.StatusCode, Detail: apiErr.Message}
		}
		return chatapi.Response{}, fmt.Errorf("openai: %w", err)
	}

	return fromSDKResponse(resp), nil
}

// UpstreamError carries the OpenAI SDK's status code and message so
// internal/ledger can pass an upstream HTTP error through verbatim
// (§4.6 step 6) instead of collapsing every SDK failure to 500.
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("openai: upstream returned %d: %s", e.StatusCode, e.Detail)
}

// Status lets internal/ledger classify this error without importing the
// openai package's concrete SDK error type.
func (e *UpstreamError) Status() (int, string) { return e.StatusCode, e.Detail }

func toSDKParams(req chatapi.Request) sdk.ChatCompletionNewParams {
	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case "assistant":
			messages = append(messages, sdk.AssistantMessage(msg.Content))
		case "system":
			messages = append(messages, sdk.SystemMessage(msg.Content))
		default:
			messages = append(messages, sdk.UserMessage(msg.Content))
		}
	}

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = sdk.Float(*req.TopP)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = sdk.Int(int64(*req.MaxTokens))
	}
	return params
}

func fromSDKResponse(resp *sdk.ChatCompletion) chatapi.Response {
	content := ""
	finishReason := "stop"
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		if fr := string(resp.Choices[0].FinishReason); fr != "" {
			finishReason = fr
		}
	}

	return chatapi.Response{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: resp.Created,
		Model:   string(resp.Model),
		Choices: []chatapi.Choice{{
			Index:        0,
			Message:      chatapi.Message{Role: "assistant", Content: content},
			FinishReason: finishReason,
		}},
		Usage: chatapi.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}
