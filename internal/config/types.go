package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
)

// StoreMode selects how the vector index is reached.
type StoreMode string

const (
	// StoreLocal embeds the index in-process, persisted under DataDir.
	StoreLocal StoreMode = "local"
	// StoreRemote talks to a Chroma server over HTTP.
	StoreRemote StoreMode = "remote"
)

// Config is the top-level configuration, corresponding to .breslov.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	// LLMRequestsPerMinute caps completion calls; zero disables the cap.
	LLMRequestsPerMinute int `yaml:"llm_rpm" koanf:"llm_rpm"`

	DataDir string `yaml:"data_dir" koanf:"data_dir"`

	Store    StoreConfig    `yaml:"store" koanf:"store"`
	Sefaria  SefariaConfig  `yaml:"sefaria" koanf:"sefaria"`
	Chunking ChunkingConfig `yaml:"chunking" koanf:"chunking"`
	Server   ServerConfig   `yaml:"server" koanf:"server"`
	Avatar   AvatarConfig   `yaml:"avatar" koanf:"avatar"`
}

// StoreConfig selects and parameterizes the vector store backend.
type StoreConfig struct {
	Mode       StoreMode `yaml:"mode" koanf:"mode"`
	Collection string    `yaml:"collection" koanf:"collection"`

	// Remote mode only.
	Host      string `yaml:"host" koanf:"host"`
	Port      int    `yaml:"port" koanf:"port"`
	SSL       bool   `yaml:"ssl" koanf:"ssl"`
	AuthToken string `yaml:"auth_token" koanf:"auth_token"`
}

// SefariaConfig tunes the upstream text API client.
type SefariaConfig struct {
	BaseURL  string `yaml:"base_url" koanf:"base_url"`
	PacingMS int    `yaml:"pacing_ms" koanf:"pacing_ms"`
	// BatchSize is the number of chapters fetched concurrently per batch.
	BatchSize int `yaml:"batch_size" koanf:"batch_size"`
}

// ChunkingConfig tunes the semantic splitter.
type ChunkingConfig struct {
	BufferSize           int     `yaml:"buffer_size" koanf:"buffer_size"`
	BreakpointPercentile float64 `yaml:"breakpoint_percentile" koanf:"breakpoint_percentile"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
	TopK           int      `yaml:"top_k" koanf:"top_k"`

	RateLimit RateLimitConfig `yaml:"rate_limit" koanf:"rate_limit"`
}

// RateLimitConfig caps requests per client IP.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute" koanf:"per_minute"`
	PerHour   int `yaml:"per_hour" koanf:"per_hour"`
}

// AvatarConfig holds the optional HeyGen streaming-avatar settings.
type AvatarConfig struct {
	Enabled  bool   `yaml:"enabled" koanf:"enabled"`
	AvatarID string `yaml:"avatar_id" koanf:"avatar_id"`
	Voice    string `yaml:"voice" koanf:"voice"`
	Quality  string `yaml:"quality" koanf:"quality"`
}
