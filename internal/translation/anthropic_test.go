package translation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oftenai/often-gateway/internal/chatapi"
	"github.com/oftenai/often-gateway/internal/translation"
)

func TestToAnthropicRequest_ExtractsAndConcatenatesSystemMessages(t *testing.T) {
	req := chatapi.Request{
		Model: "claude-sonnet-4",
		Messages: []chatapi.Message{
			{Role: "system", Content: "be concise"},
			{Role: "system", Content: "never lie"},
			{Role: "user", Content: "hi"},
		},
	}

	out, err := translation.ToAnthropicRequest(req)
	require.NoError(t, err)
	require.Equal(t, "be concise\nnever lie", out.System)
	require.Len(t, out.Messages, 1)
	require.Equal(t, "user", out.Messages[0].Role)
}

func TestToAnthropicRequest_CoalescesAdjacentSameRoleMessages(t *testing.T) {
	req := chatapi.Request{
		Model: "claude-sonnet-4",
		Messages: []chatapi.Message{
			{Role: "user", Content: "part one"},
			{Role: "user", Content: "part two"},
			{Role: "assistant", Content: "reply"},
		},
	}

	out, err := translation.ToAnthropicRequest(req)
	require.NoError(t, err)
	require.Len(t, out.Messages, 2)
	require.Equal(t, "part one\npart two", out.Messages[0].Content[0].Text)
	require.Equal(t, "assistant", out.Messages[1].Role)
}

func TestToAnthropicRequest_MaxTokensDefaultLadder(t *testing.T) {
	withoutOverride := chatapi.Request{Model: "claude-haiku-3.5", Messages: []chatapi.Message{{Role: "user", Content: "hi"}}}
	out, err := translation.ToAnthropicRequest(withoutOverride)
	require.NoError(t, err)
	require.Equal(t, 8192, out.MaxTokens)

	override := 100
	withOverride := chatapi.Request{
		Model: "claude-haiku-3.5", MaxTokens: &override,
		Messages: []chatapi.Message{{Role: "user", Content: "hi"}},
	}
	out, err = translation.ToAnthropicRequest(withOverride)
	require.NoError(t, err)
	require.Equal(t, 100, out.MaxTokens)
}

func TestToAnthropicRequest_NonClaudeFallsBackTo4096(t *testing.T) {
	req := chatapi.Request{Model: "some-other-model", Messages: []chatapi.Message{{Role: "user", Content: "hi"}}}
	out, err := translation.ToAnthropicRequest(req)
	require.NoError(t, err)
	require.Equal(t, 4096, out.MaxTokens)
}

func TestToAnthropicRequest_RejectsTools(t *testing.T) {
	req := chatapi.Request{
		Model:    "claude-sonnet-4",
		Messages: []chatapi.Message{{Role: "user", Content: "hi"}},
		Tools:    []chatapi.Tool{{Type: "function"}},
	}
	_, err := translation.ToAnthropicRequest(req)
	require.ErrorIs(t, err, translation.ErrToolsUnsupported)
}

func TestToAnthropicRequest_StopStringAndArray(t *testing.T) {
	req := chatapi.Request{
		Model:    "claude-sonnet-4",
		Messages: []chatapi.Message{{Role: "user", Content: "hi"}},
		Stop:     &chatapi.StopSeq{Single: "STOP"},
	}
	out, err := translation.ToAnthropicRequest(req)
	require.NoError(t, err)
	require.Equal(t, []string{"STOP"}, out.StopSequences)
}

func TestFromAnthropicResponse_ConcatenatesTextBlocksAndMapsStopReason(t *testing.T) {
	resp := translation.AnthropicResponse{
		ID:         "msg_123",
		Model:      "claude-sonnet-4",
		StopReason: "max_tokens",
		Content: []translation.AnthropicContentBlock{
			{Type: "text", Text: "hello "},
			{Type: "text", Text: "world"},
		},
		Usage: translation.AnthropicUsage{InputTokens: 10, OutputTokens: 5},
	}

	out := translation.FromAnthropicResponse(resp, time.Unix(1700000000, 0))
	require.Equal(t, "chat.completion", out.Object)
	require.Equal(t, "hello world", out.Choices[0].Message.Content)
	require.Equal(t, "length", out.Choices[0].FinishReason)
	require.Equal(t, int64(10), out.Usage.PromptTokens)
	require.Equal(t, int64(5), out.Usage.CompletionTokens)
	require.Equal(t, int64(15), out.Usage.TotalTokens)
}

func TestFromAnthropicResponse_UnknownStopReasonPassesThrough(t *testing.T) {
	resp := translation.AnthropicResponse{StopReason: "some_future_reason"}
	out := translation.FromAnthropicResponse(resp, time.Now())
	require.Equal(t, "some_future_reason", out.Choices[0].FinishReason)
}
