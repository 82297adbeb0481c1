// Package provider defines the upstream Provider contract shared by every
// concrete adapter (openai, anthropic, google, mistral, together, echo),
// generalized from the teacher's single-SDK domain.Provider interface to
// the plain canonical chatapi.Request/Response shape used after C3
// translation.
package provider

import (
	"context"

	"github.com/oftenai/often-gateway/internal/chatapi"
)

// Provider sends a canonical chat-completion request upstream and returns
// the canonical response. Implementations own their own wire format
// translation internally (anthropic) or speak the canonical shape natively
// (openai, google, mistral, together, echo).
type Provider interface {
	// Name returns the provider tag, e.g. "openai".
	Name() string

	// Complete sends req to the upstream API using apiKey and returns the
	// canonical response. Implementations must respect ctx's deadline.
	Complete(ctx context.Context, apiKey string, req chatapi.Request) (chatapi.Response, error)
}
