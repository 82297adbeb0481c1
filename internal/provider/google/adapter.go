// Package google adapts the canonical chat-completion shape to Gemini's
// OpenAI-compatible endpoint. No translation flag: the fields this gateway
// uses (model, messages, usage) already line up with the canonical shape.
package google

import (
	"time"

	"github.com/oftenai/often-gateway/internal/provider/httpchat"
)

// New creates a Gemini adapter.
func New(baseURL string, authHeader func(secret string) (string, string), timeout time.Duration) *httpchat.Client {
	return httpchat.New("google", baseURL, authHeader, timeout)
}
