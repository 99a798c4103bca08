package llm

import "fmt"

// Options carries the provider settings resolved from configuration.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	// RPM, when positive, caps requests per minute via a token bucket.
	RPM int
}

// NewProvider creates an LLM provider from resolved options.
// Supported providers: "anthropic", "openai", "ollama".
func NewProvider(opts Options) (Provider, error) {
	var p Provider
	switch opts.Provider {
	case "anthropic":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		p = NewAnthropicProvider(opts.APIKey, opts.Model)

	case "openai":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		p = NewOpenAIProvider(opts.APIKey, opts.Model)

	case "ollama":
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		p = NewOllamaProvider(baseURL, opts.Model)

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", opts.Provider)
	}

	return NewRateLimitedProvider(p, opts.RPM), nil
}
