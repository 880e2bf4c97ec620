package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override, e.g. CHATCART_GENERATION_MODEL.
const EnvPrefix = "CHATCART"

const (
	MinGenerationTimeout = 45 * time.Second
	MaxGenerationTimeout = 60 * time.Second
)

// Config represents the structure of config.yaml
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Log        LogConfig        `yaml:"log" envconfig:"LOG"`
	Generation GenerationConfig `yaml:"generation" envconfig:"GENERATION"`
	Memory     MemoryConfig     `yaml:"memory" envconfig:"MEMORY"`
	Catalog    CatalogConfig    `yaml:"catalog" envconfig:"CATALOG"`
	Session    SessionConfig    `yaml:"session" envconfig:"SESSION"`
}

type ServerConfig struct {
	BindAddr        string        `yaml:"bind_addr" envconfig:"BIND_ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LogConfig drives logger.InitLogger
type LogConfig struct {
	Level      string `yaml:"level" envconfig:"LEVEL"`
	Format     string `yaml:"format" envconfig:"FORMAT"`
	Output     string `yaml:"output" envconfig:"OUTPUT"`
	FilePath   string `yaml:"file_path" envconfig:"FILE_PATH"`
	TimeFormat string `yaml:"time_format" envconfig:"TIME_FORMAT"`
}

// GenerationConfig selects and tunes the text generation endpoint
type GenerationConfig struct {
	Provider    string        `yaml:"provider" envconfig:"PROVIDER"`
	BaseURL     string        `yaml:"base_url" envconfig:"BASE_URL"`
	Model       string        `yaml:"model" envconfig:"MODEL"`
	APIKey      string        `yaml:"api_key" envconfig:"API_KEY"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	Temperature float64       `yaml:"temperature" envconfig:"TEMPERATURE"`
	TopP        float64       `yaml:"top_p" envconfig:"TOP_P"`
	MaxTokens   int           `yaml:"max_tokens" envconfig:"MAX_TOKENS"`
}

// MemoryConfig selects the durable user memory backend
type MemoryConfig struct {
	Backend     string `yaml:"backend" envconfig:"BACKEND"`
	Dir         string `yaml:"dir" envconfig:"DIR"`
	RedisURL    string `yaml:"redis_url" envconfig:"REDIS_URL"`
	DatabaseURL string `yaml:"database_url" envconfig:"DATABASE_URL"`
	KeyPrefix   string `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
}

type CatalogConfig struct {
	SourceURLs     []string      `yaml:"source_urls" envconfig:"SOURCE_URLS"`
	CacheTTL       time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
	MaxPromptChars int           `yaml:"max_prompt_chars" envconfig:"MAX_PROMPT_CHARS"`
	IncludeMock    *bool         `yaml:"include_mock" envconfig:"INCLUDE_MOCK"`
}

// MockEnabled reports whether the built-in catalog is served. Defaults to true.
func (c CatalogConfig) MockEnabled() bool {
	return c.IncludeMock == nil || *c.IncludeMock
}

type SessionConfig struct {
	InactivityTimeout time.Duration `yaml:"inactivity_timeout" envconfig:"INACTIVITY_TIMEOUT"`
	DisplayLimit      int           `yaml:"display_limit" envconfig:"DISPLAY_LIMIT"`
}

var (
	providers = map[string]bool{"ollama": true, "ollama-chat": true, "openai": true, "deepseek": true, "ark": true, "none": true}
	backends  = map[string]bool{"memory": true, "file": true, "redis": true, "postgres": true}
)

// Load reads the YAML file (optional when path is empty or missing), loads
// .env if present, applies CHATCART_* environment overrides and defaults.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("error parsing YAML %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Server.BindAddr == "" {
		c.Server.BindAddr = ":8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Log.FilePath == "" {
		c.Log.FilePath = "logs/chatcart.log"
	}
	if c.Log.TimeFormat == "" {
		c.Log.TimeFormat = "rfc3339"
	}

	if c.Generation.Provider == "" {
		c.Generation.Provider = "ollama"
	}
	if c.Generation.BaseURL == "" && strings.HasPrefix(c.Generation.Provider, "ollama") {
		c.Generation.BaseURL = "http://localhost:11434"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "llama3.2"
	}
	if c.Generation.Timeout == 0 {
		c.Generation.Timeout = MaxGenerationTimeout
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = 0.1
	}
	if c.Generation.TopP == 0 {
		c.Generation.TopP = 0.9
	}
	if c.Generation.MaxTokens == 0 {
		c.Generation.MaxTokens = 120
	}

	if c.Memory.Backend == "" {
		c.Memory.Backend = "file"
	}
	if c.Memory.Dir == "" {
		c.Memory.Dir = "data/memory"
	}
	if c.Memory.KeyPrefix == "" {
		c.Memory.KeyPrefix = "memory:"
	}

	if c.Catalog.CacheTTL == 0 {
		c.Catalog.CacheTTL = 10 * time.Minute
	}
	if c.Catalog.MaxPromptChars == 0 {
		c.Catalog.MaxPromptChars = 120000
	}

	if c.Session.InactivityTimeout == 0 {
		c.Session.InactivityTimeout = 30 * time.Minute
	}
	if c.Session.DisplayLimit == 0 {
		c.Session.DisplayLimit = 5
	}
}

// Validate rejects unknown providers and backends and clamps the generation
// deadline into [MinGenerationTimeout, MaxGenerationTimeout].
func (c *Config) Validate() error {
	if !providers[c.Generation.Provider] {
		return fmt.Errorf("unknown generation provider %q", c.Generation.Provider)
	}
	if !backends[c.Memory.Backend] {
		return fmt.Errorf("unknown memory backend %q", c.Memory.Backend)
	}
	switch c.Memory.Backend {
	case "redis":
		if c.Memory.RedisURL == "" {
			return errors.New("memory.redis_url is required for the redis backend")
		}
	case "postgres":
		if c.Memory.DatabaseURL == "" {
			return errors.New("memory.database_url is required for the postgres backend")
		}
	}

	if c.Generation.Timeout < MinGenerationTimeout {
		c.Generation.Timeout = MinGenerationTimeout
	}
	if c.Generation.Timeout > MaxGenerationTimeout {
		c.Generation.Timeout = MaxGenerationTimeout
	}
	if c.Session.DisplayLimit < 1 {
		return fmt.Errorf("session.display_limit must be positive, got %d", c.Session.DisplayLimit)
	}
	return nil
}
