// Package echo provides a deterministic, no-network provider used by tests
// and local development. Repurposed from the teacher's echo provider (which
// only ever echoed input messages) into a scriptable stub: by default it
// still echoes, but a test can install a Script function to make it return
// an arbitrary canonical response or error, exercising scenarios like S3
// (race under $0.01) and S4 (payload manipulation: request claims one
// model, upstream reports another).
package echo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oftenai/often-gateway/internal/chatapi"
	"github.com/oftenai/often-gateway/internal/provider"
)

const providerName = "echo"

var _ provider.Provider = (*Provider)(nil)

// Script lets a test fully control the response for a given request,
// bypassing the built-in echo behavior.
type Script func(req chatapi.Request) (chatapi.Response, error)

// Provider is the echo test/dev provider.
type Provider struct {
	Script Script
}

// New creates an echo provider with the default echo-back behavior.
func New() *Provider { return &Provider{} }

// Name returns the provider tag.
func (p *Provider) Name() string { return providerName }

// Complete returns the scripted response if one is installed, else echoes
// the request back with a token count derived from whitespace-split words.
func (p *Provider) Complete(_ context.Context, _ string, req chatapi.Request) (chatapi.Response, error) {
	if p.Script != nil {
		return p.Script(req)
	}

	content := buildEchoContent(req.Messages)
	promptTokens := int64(countWords(content))
	completionTokens := promptTokens

	return chatapi.Response{
		ID:      fmt.Sprintf("echo-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatapi.Choice{{
			Index:        0,
			Message:      chatapi.Message{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: chatapi.Usage{
			PromptTokens: promptTokens, CompletionTokens: completionTokens,
			TotalTokens: promptTokens + completionTokens,
		},
	}, nil
}

func buildEchoContent(messages []chatapi.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		fmt.Fprintf(&b, "[%s]: %s\n", msg.Role, msg.Content)
	}
	return b.String()
}

func countWords(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Fields(content))
}
