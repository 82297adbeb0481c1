// Package mistral adapts the canonical chat-completion shape to Mistral's
// native chat endpoint, which is OpenAI-shape-compatible for the fields
// this gateway uses.
package mistral

import (
	"time"

	"github.com/oftenai/often-gateway/internal/provider/httpchat"
)

// New creates a Mistral adapter.
func New(baseURL string, authHeader func(secret string) (string, string), timeout time.Duration) *httpchat.Client {
	return httpchat.New("mistral", baseURL, authHeader, timeout)
}
