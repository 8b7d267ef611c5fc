package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
	"github.com/xkilldash9x/wayfinder-cli/internal/config"
)

type stubClient struct {
	reply string
	calls int
}

func (s *stubClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	s.calls++
	return s.reply, nil
}

func TestLLMRouter_RoutesByTier(t *testing.T) {
	fast := &stubClient{reply: "fast"}
	powerful := &stubClient{reply: "powerful"}
	router, err := NewLLMRouter(zap.NewNop(), fast, powerful)
	require.NoError(t, err)

	out, err := router.Generate(context.Background(), schemas.GenerationRequest{Tier: schemas.TierFast})
	require.NoError(t, err)
	assert.Equal(t, "fast", out)

	out, err = router.Generate(context.Background(), schemas.GenerationRequest{Tier: schemas.TierPowerful})
	require.NoError(t, err)
	assert.Equal(t, "powerful", out)
}

func TestLLMRouter_DefaultsToPowerful(t *testing.T) {
	fast := &stubClient{reply: "fast"}
	powerful := &stubClient{reply: "powerful"}
	router, err := NewLLMRouter(zap.NewNop(), fast, powerful)
	require.NoError(t, err)

	out, err := router.Generate(context.Background(), schemas.GenerationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "powerful", out)
	assert.Zero(t, fast.calls)
}

func TestLLMRouter_RequiresBothTiers(t *testing.T) {
	_, err := NewLLMRouter(zap.NewNop(), nil, &stubClient{})
	assert.Error(t, err)
}

func TestNewClient_SharedProviderBlock(t *testing.T) {
	// A single "gemini" entry serves both tiers when no per-model entries
	// exist.
	client, err := NewClient(config.LLMRouterConfig{
		DefaultFastModel:     "gemini-2.5-flash",
		DefaultPowerfulModel: "gemini-2.5-pro",
		Models: map[string]config.LLMModelConfig{
			"gemini": {Provider: config.ProviderGemini, APIKey: "test-key"},
		},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LLMRouter{}, client)
}

func TestNewClient_MissingModelConfig(t *testing.T) {
	_, err := NewClient(config.LLMRouterConfig{
		DefaultFastModel:     "gemini-2.5-flash",
		DefaultPowerfulModel: "gemini-2.5-pro",
	}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model configuration")
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(config.LLMRouterConfig{
		DefaultFastModel:     "other-model",
		DefaultPowerfulModel: "other-model",
		Models: map[string]config.LLMModelConfig{
			"other-model": {Provider: "anthropic", APIKey: "k"},
		},
	}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}
