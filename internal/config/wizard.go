package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .breslov.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to breslov-rag! Let's configure your instance.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Answer provider.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider for answers",
		Items: []string{"anthropic", "openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: defaultModelFor(cfg.Provider),
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	cfg.Model = model

	// 2. Embedding provider. Anthropic has no embeddings API, so local
	// models pair with ollama and everything else with openai.
	cfg.EmbeddingProvider = embeddingProviderFor(cfg.Provider)
	cfg.EmbeddingModel = DefaultEmbeddingModel(cfg.EmbeddingProvider)

	// 3. Vector store placement.
	storePrompt := promptui.Select{
		Label: "Vector store",
		Items: []string{
			"local  (embedded index on disk)",
			"remote (Chroma server over HTTP)",
		},
	}
	storeIdx, _, err := storePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("store selection: %w", err)
	}
	if storeIdx == 1 {
		cfg.Store.Mode = StoreRemote

		hostPrompt := promptui.Prompt{Label: "Chroma host", Default: "localhost"}
		host, err := hostPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("store host: %w", err)
		}
		cfg.Store.Host = host

		portPrompt := promptui.Prompt{
			Label:    "Chroma port",
			Default:  "8000",
			Validate: validatePort,
		}
		portStr, err := portPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("store port: %w", err)
		}
		cfg.Store.Port, _ = strconv.Atoi(portStr)
	}

	// 4. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory (index and run history)",
		Default: "data",
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 5. API server port.
	portPrompt := promptui.Prompt{
		Label:    "API server port",
		Default:  "8080",
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// Check for API keys.
	for _, p := range []ProviderType{cfg.Provider, cfg.EmbeddingProvider} {
		if envVar := APIKeyEnvVar(p); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running breslov-rag.\n", envVar)
		}
	}

	if err := cfg.Save(DefaultConfigFile); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultConfigFile)
	fmt.Println("Run 'breslov-rag ingest --all' to build the index.")
	return cfg, nil
}

// defaultModelFor suggests an answer model per provider.
func defaultModelFor(p ProviderType) string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4o"
	case ProviderOllama:
		return "llama3"
	default:
		return "claude-sonnet-4-5-20250929"
	}
}

// embeddingProviderFor returns the default embedding provider for a given
// LLM provider.
func embeddingProviderFor(p ProviderType) ProviderType {
	if p == ProviderOllama {
		return ProviderOllama
	}
	return ProviderOpenAI
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be a number in 1..65535")
	}
	return nil
}
