package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

type AgentDefaults struct {
	WorkspaceBase string `json:"workspaceBase"`
	Model         string `json:"model"`
	Provider      string `json:"provider,omitempty"` // Explicit provider selection
}

type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

type ProviderConfig struct {
	APIKey  string `json:"apiKey"`
	APIBase string `json:"apiBase,omitempty"`
}

type ProvidersConfig struct {
	OpenAI     ProviderConfig `json:"openai"`
	OpenRouter ProviderConfig `json:"openrouter"`
	DeepSeek   ProviderConfig `json:"deepseek"`
}

type SchedulerConfig struct {
	MaxInstances int `json:"maxInstances"` // concurrent executions per job id
	GraceSeconds int `json:"graceSeconds"` // drain budget on stop
}

type ReportConfig struct {
	MaxAttempts    int `json:"maxAttempts"`
	BackoffBaseMs  int `json:"backoffBaseMs"`
	TimeoutSeconds int `json:"timeoutSeconds"`
}

type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type Config struct {
	Agents    AgentsConfig    `json:"agents"`
	Providers ProvidersConfig `json:"providers"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Report    ReportConfig    `json:"report"`
	Gateway   GatewayConfig   `json:"gateway"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Agents: AgentsConfig{
			Defaults: AgentDefaults{
				WorkspaceBase: ".finbot/workspaces",
				Model:         "gpt-4o",
			},
		},
		Scheduler: SchedulerConfig{
			MaxInstances: 3,
			GraceSeconds: 10,
		},
		Report: ReportConfig{
			MaxAttempts:    3,
			BackoffBaseMs:  500,
			TimeoutSeconds: 120,
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 18790,
		},
	}
}

// LoadConfig loads the configuration from the given path, overlaying the
// defaults. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(".finbot", "config.json")
	}

	config := DefaultConfig()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}

	return config, nil
}
