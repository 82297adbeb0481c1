package routing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oftenai/often-gateway/internal/routing"
)

func TestClassify_PrefixOrder(t *testing.T) {
	reg := routing.DefaultRegistry()
	ctx := context.Background()

	cases := map[string]routing.ProviderTag{
		"gpt-4o":           routing.ProviderOpenAI,
		"o1":               routing.ProviderOpenAI,
		"o3-mini":          routing.ProviderOpenAI,
		"o4-mini":          routing.ProviderOpenAI,
		"claude-sonnet-4":  routing.ProviderAnthropic,
		"gemini-1.5-pro":   routing.ProviderGoogle,
		"mistral-large":    routing.ProviderMistral,
		"meta-llama/llama": routing.ProviderTogether,
		"some-unknown-oss": routing.ProviderTogether,
	}

	for model, want := range cases {
		require.Equal(t, want, reg.Classify(ctx, model), "model %s", model)
	}
}

func TestResolve_AnthropicNeedsTranslation(t *testing.T) {
	reg := routing.DefaultRegistry()
	route, err := reg.Resolve(context.Background(), "claude-opus-4")
	require.NoError(t, err)
	require.True(t, route.NeedsTranslation)
	require.Equal(t, "anthropic_api_key", route.SecretName)

	header, value := route.AuthHeader("sk-test")
	require.Equal(t, "x-api-key", header)
	require.Equal(t, "sk-test", value)
}

func TestResolve_OpenAIBearerAuth(t *testing.T) {
	reg := routing.DefaultRegistry()
	route, err := reg.Resolve(context.Background(), "gpt-4o")
	require.NoError(t, err)
	require.False(t, route.NeedsTranslation)

	header, value := route.AuthHeader("sk-test")
	require.Equal(t, "Authorization", header)
	require.Equal(t, "Bearer sk-test", value)
}

func TestResolve_UnknownTagIsAnError(t *testing.T) {
	reg := routing.NewRegistry(routing.ProviderTogether)
	_, err := reg.Resolve(context.Background(), "anything")
	require.Error(t, err)
}

func TestRegisterPattern_ExtensibleWithoutCodeChange(t *testing.T) {
	reg := routing.DefaultRegistry()
	reg.RegisterPattern(routing.PrefixPattern("cohere", routing.ProviderTag("cohere"), "command-"))
	reg.RegisterRoute(routing.Route{Tag: routing.ProviderTag("cohere"), BaseURL: "https://api.cohere.ai"})

	require.Equal(t, routing.ProviderTag("cohere"), reg.Classify(context.Background(), "command-r-plus"))
}
