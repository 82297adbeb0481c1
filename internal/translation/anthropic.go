// Package translation implements the bidirectional shape adaptation (C3)
// between the canonical chat-completion format and providers whose wire
// format diverges from it — currently Anthropic's Messages API. Grounded on
// the teacher pack's internal/adapter/anthropic/anthropic.go, generalized
// from a full HTTP adapter into a pure request/response translator so the
// actual HTTP transport lives in internal/provider/anthropic.
package translation

import (
	"errors"
	"strings"
	"time"

	"github.com/oftenai/often-gateway/internal/chatapi"
)

// claudeDefaultMaxTokens is the per-model default max_tokens used when the
// caller supplies none, for the Claude family (§4.3).
const claudeDefaultMaxTokens = 8192

// fallbackMaxTokens applies when neither the caller nor a per-model default
// supplies a value.
const fallbackMaxTokens = 4096

// ErrToolsUnsupported is returned when a request destined for Anthropic
// declares tools; the gateway rejects these pre-flight (§4.3, §4.6 step 2).
var ErrToolsUnsupported = errors.New("translation: tool use not supported for this provider")

// AnthropicMessage is one entry of Anthropic's Messages API messages array.
type AnthropicMessage struct {
	Role    string                   `json:"role"`
	Content []AnthropicContentBlock `json:"content"`
}

// AnthropicContentBlock is a single content block; only the "text" type is
// produced or consumed by this translator.
type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// AnthropicRequest is the body posted to POST /v1/messages.
type AnthropicRequest struct {
	Model         string             `json:"model"`
	Messages      []AnthropicMessage `json:"messages"`
	System        string             `json:"system,omitempty"`
	MaxTokens     int                `json:"max_tokens"`
	Temperature   *float64           `json:"temperature,omitempty"`
	TopP          *float64           `json:"top_p,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
	Stream        bool               `json:"stream,omitempty"`
}

// AnthropicUsage mirrors the usage block Anthropic returns.
type AnthropicUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// AnthropicResponse is the body Anthropic returns from POST /v1/messages.
type AnthropicResponse struct {
	ID           string                  `json:"id"`
	Type         string                  `json:"type"`
	Role         string                  `json:"role"`
	Content      []AnthropicContentBlock `json:"content"`
	Model        string                  `json:"model"`
	StopReason   string                  `json:"stop_reason"`
	StopSequence string                  `json:"stop_sequence,omitempty"`
	Usage        AnthropicUsage          `json:"usage"`
}

// ToAnthropicRequest converts a canonical request into an Anthropic request.
// It extracts and concatenates all system messages into the top-level
// `system` field, coalesces adjacent same-role messages in the remainder by
// joining their content with "\n", applies the max_tokens default ladder
// (caller value, else Claude-family default, else the global fallback), and
// renames stop/stop_sequences.
//
// Returns ErrToolsUnsupported if req declares any tools — callers must
// reject the request before ever calling this function for real traffic,
// but this function also refuses defensively.
func ToAnthropicRequest(req chatapi.Request) (AnthropicRequest, error) {
	if len(req.Tools) > 0 {
		return AnthropicRequest{}, ErrToolsUnsupported
	}

	var systemParts []string
	var rest []chatapi.Message
	for _, m := range req.Messages {
		if strings.EqualFold(m.Role, "system") {
			systemParts = append(systemParts, m.Content)
			continue
		}
		rest = append(rest, m)
	}

	messages := coalesceAdjacentRoles(rest)

	maxTokens := fallbackMaxTokens
	if strings.HasPrefix(req.Model, "claude-") {
		maxTokens = claudeDefaultMaxTokens
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	out := AnthropicRequest{
		Model:         req.Model,
		Messages:      messages,
		System:        strings.Join(systemParts, "\n"),
		MaxTokens:     maxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop.AsSlice(),
		Stream:        req.Stream,
	}
	return out, nil
}

// coalesceAdjacentRoles merges runs of consecutive messages sharing a role
// into a single message, joining their content with "\n".
func coalesceAdjacentRoles(messages []chatapi.Message) []AnthropicMessage {
	var out []AnthropicMessage
	for _, m := range messages {
		role := normalizeRole(m.Role)
		if n := len(out); n > 0 && out[n-1].Role == role {
			prev := out[n-1].Content[0]
			prev.Text = prev.Text + "\n" + m.Content
			out[n-1].Content[0] = prev
			continue
		}
		out = append(out, AnthropicMessage{
			Role:    role,
			Content: []AnthropicContentBlock{{Type: "text", Text: m.Content}},
		})
	}
	return out
}

func normalizeRole(role string) string {
	if strings.EqualFold(role, "assistant") {
		return "assistant"
	}
	return "user"
}

var anthropicStopReason = map[string]string{
	"end_turn":      "stop",
	"stop_sequence": "stop",
	"max_tokens":    "length",
	"tool_use":      "tool_calls",
}

// FromAnthropicResponse converts an Anthropic response into the canonical
// shape: concatenates all text content blocks into the assistant message,
// maps stop_reason (unknown values pass through verbatim), and synthesizes
// usage totals from input_tokens/output_tokens.
func FromAnthropicResponse(resp AnthropicResponse, now time.Time) chatapi.Response {
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	finishReason, ok := anthropicStopReason[resp.StopReason]
	if !ok {
		finishReason = resp.StopReason
	}

	usage := chatapi.Usage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}

	return chatapi.Response{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: now.Unix(),
		Model:   resp.Model,
		Choices: []chatapi.Choice{{
			Index:        0,
			Message:      chatapi.Message{Role: "assistant", Content: text.String()},
			FinishReason: finishReason,
		}},
		Usage: usage,
	}
}
