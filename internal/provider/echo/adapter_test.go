package echo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oftenai/often-gateway/internal/chatapi"
	"github.com/oftenai/often-gateway/internal/provider/echo"
)

func TestComplete_DefaultEchoesMessages(t *testing.T) {
	p := echo.New()
	resp, err := p.Complete(context.Background(), "", chatapi.Request{
		Model:    "echo4",
		Messages: []chatapi.Message{{Role: "user", Content: "hello world"}},
	})
	require.NoError(t, err)
	require.Contains(t, resp.Choices[0].Message.Content, "hello world")
	require.Equal(t, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
}

func TestComplete_ScriptOverridesModelForPayloadManipulationScenario(t *testing.T) {
	p := echo.New()
	p.Script = func(req chatapi.Request) (chatapi.Response, error) {
		return chatapi.Response{
			Model: "gpt-4o",
			Usage: chatapi.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
		}, nil
	}

	resp, err := p.Complete(context.Background(), "", chatapi.Request{Model: "gpt-3.5-turbo"})
	require.NoError(t, err)
	require.Equal(t, "gpt-4o", resp.Model)
	require.NotEqual(t, "gpt-3.5-turbo", resp.Model)
}

func TestComplete_ScriptCanReturnError(t *testing.T) {
	p := echo.New()
	sentinel := errors.New("boom")
	p.Script = func(chatapi.Request) (chatapi.Response, error) { return chatapi.Response{}, sentinel }

	_, err := p.Complete(context.Background(), "", chatapi.Request{})
	require.ErrorIs(t, err, sentinel)
}
