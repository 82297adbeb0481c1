// Package routing implements the provider registry & router (C2): classify
// a model identifier into a provider tag and expose that provider's
// connection recipe. Generalized from the teacher's single-SDK
// internal/provider/registry/registry.go + internal/routing/router.go into
// an ordered []RoutePattern table, per SPEC_FULL §4.2's REDESIGN-FLAG fix —
// a deployment can register additional prefixes without touching this file's
// logic.
package routing

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ProviderTag names one of the upstream providers this gateway can route to.
type ProviderTag string

const (
	ProviderOpenAI    ProviderTag = "openai"
	ProviderAnthropic ProviderTag = "anthropic"
	ProviderGoogle    ProviderTag = "google"
	ProviderMistral   ProviderTag = "mistral"
	ProviderTogether  ProviderTag = "together"
)

// AuthHeaderFunc builds the upstream Authorization-style header value from
// a resolved secret.
type AuthHeaderFunc func(secret string) (header string, value string)

// Route is the immutable connection recipe for one provider tag.
type Route struct {
	Tag              ProviderTag
	BaseURL          string
	SecretName       string
	AuthHeader       AuthHeaderFunc
	NeedsTranslation bool
}

// RoutePattern pairs a model-name matcher with the provider tag it resolves
// to. Patterns are evaluated in registration order; the first match wins.
// This is the extensibility point the REDESIGN FLAG calls for: a deployment
// adds prefixes by registering more patterns, not by editing a switch.
type RoutePattern struct {
	Name    string
	Matches func(model string) bool
	Tag     ProviderTag
}

// PrefixPattern builds a RoutePattern that matches models with any of the
// given prefixes.
func PrefixPattern(name string, tag ProviderTag, prefixes ...string) RoutePattern {
	return RoutePattern{
		Name: name,
		Tag:  tag,
		Matches: func(model string) bool {
			for _, p := range prefixes {
				if strings.HasPrefix(model, p) {
					return true
				}
			}
			return false
		},
	}
}

// Registry holds the ordered pattern table and the per-tag route records.
type Registry struct {
	mu       sync.RWMutex
	patterns []RoutePattern
	routes   map[ProviderTag]Route
	fallback ProviderTag
}

// NewRegistry creates an empty registry. Call RegisterPattern and
// RegisterRoute to populate it, or use DefaultRegistry for the spec's seed
// configuration.
func NewRegistry(fallback ProviderTag) *Registry {
	return &Registry{
		routes:   make(map[ProviderTag]Route),
		fallback: fallback,
	}
}

// RegisterPattern appends a matcher to the ordered pattern table.
func (r *Registry) RegisterPattern(p RoutePattern) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, p)
}

// RegisterRoute installs or replaces the connection recipe for a tag.
func (r *Registry) RegisterRoute(route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[route.Tag] = route
}

// Classify returns the provider tag for model by walking the pattern table
// in order; the registry's fallback tag applies when nothing matches, so
// the catch-all is explicit configuration rather than an implicit default.
func (r *Registry) Classify(_ context.Context, model string) ProviderTag {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patterns {
		if p.Matches(model) {
			return p.Tag
		}
	}
	return r.fallback
}

// Resolve returns both the provider tag for model and its connection
// recipe.
func (r *Registry) Resolve(ctx context.Context, model string) (Route, error) {
	tag := r.Classify(ctx, model)

	r.mu.RLock()
	route, ok := r.routes[tag]
	r.mu.RUnlock()
	if !ok {
		return Route{}, fmt.Errorf("routing: no route configured for provider %q (model %q)", tag, model)
	}
	return route, nil
}

// DefaultRegistry builds the registry seeded with the spec's prefix
// classification order: gpt-/o1/o3/o4 -> openai, claude- -> anthropic,
// gemini- -> google, mistral- -> mistral, otherwise -> together.
func DefaultRegistry() *Registry {
	reg := NewRegistry(ProviderTogether)

	reg.RegisterPattern(PrefixPattern("openai", ProviderOpenAI, "gpt-", "o1", "o3", "o4"))
	reg.RegisterPattern(PrefixPattern("anthropic", ProviderAnthropic, "claude-"))
	reg.RegisterPattern(PrefixPattern("google", ProviderGoogle, "gemini-"))
	reg.RegisterPattern(PrefixPattern("mistral", ProviderMistral, "mistral-"))

	bearerAuth := func(secret string) (string, string) { return "Authorization", "Bearer " + secret }

	reg.RegisterRoute(Route{
		Tag: ProviderOpenAI, BaseURL: "https://api.openai.com/v1",
		SecretName: "openai_api_key", AuthHeader: bearerAuth, NeedsTranslation: false,
	})
	reg.RegisterRoute(Route{
		Tag: ProviderAnthropic, BaseURL: "https://api.anthropic.com",
		SecretName: "anthropic_api_key",
		AuthHeader: func(secret string) (string, string) { return "x-api-key", secret },
		NeedsTranslation: true,
	})
	reg.RegisterRoute(Route{
		Tag: ProviderGoogle, BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
		SecretName: "google_api_key", AuthHeader: bearerAuth, NeedsTranslation: false,
	})
	reg.RegisterRoute(Route{
		Tag: ProviderMistral, BaseURL: "https://api.mistral.ai/v1",
		SecretName: "mistral_api_key", AuthHeader: bearerAuth, NeedsTranslation: false,
	})
	reg.RegisterRoute(Route{
		Tag: ProviderTogether, BaseURL: "https://api.together.xyz/v1",
		SecretName: "together_api_key", AuthHeader: bearerAuth, NeedsTranslation: false,
	})

	return reg
}
