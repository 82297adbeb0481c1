// Package together adapts the canonical chat-completion shape to Together's
// chat endpoint, the explicit catch-all for arbitrary open-source model
// slugs that don't match any other provider's prefix pattern.
package together

import (
	"time"

	"github.com/oftenai/often-gateway/internal/provider/httpchat"
)

// New creates a Together adapter.
func New(baseURL string, authHeader func(secret string) (string, string), timeout time.Duration) *httpchat.Client {
	return httpchat.New("together", baseURL, authHeader, timeout)
}
