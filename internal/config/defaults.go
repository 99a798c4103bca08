package config

// DefaultConfigFile is the conventional config file name.
const DefaultConfigFile = ".breslov.yml"

// embeddingDefaults maps each provider to its default embedding model.
var embeddingDefaults = map[ProviderType]string{
	ProviderOpenAI: "text-embedding-3-small",
	ProviderOllama: "nomic-embed-text",
}

// DefaultConfig returns a Config with sensible defaults: answers from
// Anthropic, embeddings from OpenAI, a local on-disk index, and the
// polite Sefaria pacing.
func DefaultConfig() *Config {
	return &Config{
		Provider:             ProviderAnthropic,
		Model:                "claude-sonnet-4-5-20250929",
		EmbeddingProvider:    ProviderOpenAI,
		EmbeddingModel:       "text-embedding-3-small",
		LLMRequestsPerMinute: 0,
		DataDir:              "data",
		Store: StoreConfig{
			Mode:       StoreLocal,
			Collection: "breslov_texts",
			Host:       "localhost",
			Port:       8000,
		},
		Sefaria: SefariaConfig{
			BaseURL:   "https://www.sefaria.org/api",
			PacingMS:  500,
			BatchSize: 10,
		},
		Chunking: ChunkingConfig{
			BufferSize:           3,
			BreakpointPercentile: 85,
		},
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"*"},
			TopK:           5,
			RateLimit: RateLimitConfig{
				PerMinute: 20,
				PerHour:   200,
			},
		},
		Avatar: AvatarConfig{
			Enabled: false,
			Quality: "medium",
		},
	}
}

// DefaultEmbeddingModel returns the default embedding model for a provider.
func DefaultEmbeddingModel(provider ProviderType) string {
	if m, ok := embeddingDefaults[provider]; ok {
		return m
	}
	return "text-embedding-3-small"
}
