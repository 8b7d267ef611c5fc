// internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
	"github.com/xkilldash9x/wayfinder-cli/internal/config"
)

// NewClient builds the tiered router from the agent's LLM configuration.
// Each configured tier resolves its model config by name from cfg.Models.
func NewClient(cfg config.LLMRouterConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	fast, err := newProviderClient(cfg, cfg.DefaultFastModel, logger)
	if err != nil {
		return nil, fmt.Errorf("fast tier: %w", err)
	}
	powerful, err := newProviderClient(cfg, cfg.DefaultPowerfulModel, logger)
	if err != nil {
		return nil, fmt.Errorf("powerful tier: %w", err)
	}
	return NewLLMRouter(logger, fast, powerful)
}

func newProviderClient(cfg config.LLMRouterConfig, modelName string, logger *zap.Logger) (schemas.LLMClient, error) {
	modelCfg, ok := cfg.Models[modelName]
	if !ok {
		// Fall back to a single shared entry keyed by provider name, so a
		// minimal config with one "gemini" block still works for both tiers.
		modelCfg, ok = cfg.Models[string(config.ProviderGemini)]
		if !ok {
			return nil, fmt.Errorf("no model configuration found for %q", modelName)
		}
		modelCfg.Model = modelName
	}
	if modelCfg.Model == "" {
		modelCfg.Model = modelName
	}

	switch modelCfg.Provider {
	case config.ProviderGemini, "":
		return NewGeminiClient(modelCfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: %q", modelCfg.Provider)
	}
}
