package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.BindAddr)
	assert.Equal(t, "ollama", cfg.Generation.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.Generation.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Generation.Timeout)
	assert.InDelta(t, 0.1, cfg.Generation.Temperature, 1e-9)
	assert.InDelta(t, 0.9, cfg.Generation.TopP, 1e-9)
	assert.Equal(t, 120, cfg.Generation.MaxTokens)
	assert.Equal(t, "file", cfg.Memory.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Catalog.CacheTTL)
	assert.Equal(t, 120000, cfg.Catalog.MaxPromptChars)
	assert.True(t, cfg.Catalog.MockEnabled())
	assert.Equal(t, 5, cfg.Session.DisplayLimit)
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  bind_addr: ":9000"
generation:
  provider: openai
  base_url: https://openrouter.ai/api/v1
  model: openai/gpt-4o-mini
  timeout: 50s
catalog:
  include_mock: false
  cache_ttl: 2m
`)
	t.Setenv("CHATCART_GENERATION_API_KEY", "sk-test")
	t.Setenv("CHATCART_SERVER_BIND_ADDR", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.BindAddr)
	assert.Equal(t, "openai", cfg.Generation.Provider)
	assert.Equal(t, "sk-test", cfg.Generation.APIKey)
	assert.Equal(t, 50*time.Second, cfg.Generation.Timeout)
	assert.False(t, cfg.Catalog.MockEnabled())
	assert.Equal(t, 2*time.Minute, cfg.Catalog.CacheTTL)
}

func TestValidateClampsTimeout(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"too short", 5 * time.Second, MinGenerationTimeout},
		{"too long", 5 * time.Minute, MaxGenerationTimeout},
		{"in range", 50 * time.Second, 50 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{}
			cfg.ApplyDefaults()
			cfg.Generation.Timeout = tt.in
			require.NoError(t, cfg.Validate())
			assert.Equal(t, tt.want, cfg.Generation.Timeout)
		})
	}
}

func TestValidateRejectsUnknown(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	cfg.Generation.Provider = "gpt-local"
	assert.Error(t, cfg.Validate())

	cfg = Config{}
	cfg.ApplyDefaults()
	cfg.Memory.Backend = "redis"
	assert.Error(t, cfg.Validate(), "redis backend without url")

	cfg.Memory.RedisURL = "redis://localhost:6379/0"
	assert.NoError(t, cfg.Validate())
}
