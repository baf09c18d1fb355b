package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Scheduler.MaxInstances)
	assert.Equal(t, 3, cfg.Report.MaxAttempts)
	assert.Equal(t, 18790, cfg.Gateway.Port)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"gateway": {"host": "127.0.0.1", "port": 9999},
		"providers": {"openai": {"apiKey": "sk-test"}}
	}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Gateway.Host)
	assert.Equal(t, 9999, cfg.Gateway.Port)
	assert.Equal(t, "sk-test", cfg.Providers.OpenAI.APIKey)
	// Unset sections keep their defaults.
	assert.Equal(t, 3, cfg.Scheduler.MaxInstances)
	assert.Equal(t, "gpt-4o", cfg.Agents.Defaults.Model)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
