package providers

import (
	"fmt"
	"os"
	"strings"

	"github.com/finbot-ai/finbot-go/pkg/config"
)

// NewGenerator creates the generation client selected by configuration.
func NewGenerator(cfg *config.Config) (Generator, error) {
	model := cfg.Agents.Defaults.Model
	explicit := cfg.Agents.Defaults.Provider

	// Check env if config is empty
	checkEnv := func(cfgVal, envKey string) string {
		if cfgVal != "" {
			return cfgVal
		}
		return os.Getenv(envKey)
	}

	// 1. Explicit selection
	if explicit != "" {
		switch strings.ToLower(explicit) {
		case "openai":
			apiKey := checkEnv(cfg.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
			return NewOpenAIClient(apiKey, cfg.Providers.OpenAI.APIBase, model), nil
		case "deepseek":
			apiKey := checkEnv(cfg.Providers.DeepSeek.APIKey, "DEEPSEEK_API_KEY")
			apiBase := cfg.Providers.DeepSeek.APIBase
			if apiBase == "" {
				apiBase = "https://api.deepseek.com"
			}
			return NewOpenAIClient(apiKey, apiBase, model), nil
		case "openrouter":
			apiKey := checkEnv(cfg.Providers.OpenRouter.APIKey, "OPENROUTER_API_KEY")
			apiBase := cfg.Providers.OpenRouter.APIBase
			if apiBase == "" {
				apiBase = "https://openrouter.ai/api/v1"
			}
			return NewOpenAIClient(apiKey, apiBase, model), nil
		default:
			return nil, fmt.Errorf("unknown provider: %s", explicit)
		}
	}

	// 2. Heuristic selection based on configured keys
	if key := checkEnv(cfg.Providers.OpenRouter.APIKey, "OPENROUTER_API_KEY"); key != "" {
		apiBase := cfg.Providers.OpenRouter.APIBase
		if apiBase == "" {
			apiBase = "https://openrouter.ai/api/v1"
		}
		return NewOpenAIClient(key, apiBase, model), nil
	}
	if key := checkEnv(cfg.Providers.DeepSeek.APIKey, "DEEPSEEK_API_KEY"); key != "" {
		apiBase := cfg.Providers.DeepSeek.APIBase
		if apiBase == "" {
			apiBase = "https://api.deepseek.com"
		}
		return NewOpenAIClient(key, apiBase, model), nil
	}
	if key := checkEnv(cfg.Providers.OpenAI.APIKey, "OPENAI_API_KEY"); key != "" {
		return NewOpenAIClient(key, cfg.Providers.OpenAI.APIBase, model), nil
	}

	return nil, fmt.Errorf("no API key configured for any provider")
}
