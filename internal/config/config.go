// Package config loads and validates the .breslov.yml configuration with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (BRESLOV_*). Nested keys use a double
// underscore: BRESLOV_STORE__MODE maps to store.mode.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("BRESLOV_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "BRESLOV_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderAnthropic: true,
	ProviderOpenAI:    true,
	ProviderOllama:    true,
}

// validEmbeddingProviders excludes anthropic, which has no embeddings API.
var validEmbeddingProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of anthropic, openai, ollama", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if c.EmbeddingProvider == "" {
		return fmt.Errorf("embedding_provider is required")
	}
	if !validEmbeddingProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q: must be one of openai, ollama", c.EmbeddingProvider)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding_model is required")
	}

	switch c.Store.Mode {
	case StoreLocal:
		if c.DataDir == "" {
			return fmt.Errorf("data_dir is required for local store mode")
		}
	case StoreRemote:
		if c.Store.Host == "" {
			return fmt.Errorf("store.host is required for remote store mode")
		}
		if c.Store.Port <= 0 {
			return fmt.Errorf("store.port is required for remote store mode")
		}
	default:
		return fmt.Errorf("invalid store.mode %q: must be local or remote", c.Store.Mode)
	}
	if c.Store.Collection == "" {
		return fmt.Errorf("store.collection is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535")
	}
	if c.Server.TopK < 1 || c.Server.TopK > 50 {
		return fmt.Errorf("server.top_k must be in 1..50")
	}
	if c.Server.RateLimit.PerMinute < 0 || c.Server.RateLimit.PerHour < 0 {
		return fmt.Errorf("rate limits must be non-negative")
	}

	if p := c.Chunking.BreakpointPercentile; p <= 0 || p > 100 {
		return fmt.Errorf("chunking.breakpoint_percentile must be in (0, 100]")
	}
	if c.Chunking.BufferSize < 0 {
		return fmt.Errorf("chunking.buffer_size must be non-negative")
	}

	if c.Avatar.Enabled && c.Avatar.AvatarID == "" {
		return fmt.Errorf("avatar.avatar_id is required when the avatar is enabled")
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// APIKey resolves the API key for a provider from the environment.
// Ollama needs none and always resolves to the empty string.
func APIKey(provider ProviderType) string {
	if name := APIKeyEnvVar(provider); name != "" {
		return os.Getenv(name)
	}
	return ""
}
