package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nlerner/breslov-rag/internal/config"
	"github.com/nlerner/breslov-rag/internal/db"
	"github.com/nlerner/breslov-rag/internal/embeddings"
	"github.com/nlerner/breslov-rag/internal/engine"
	"github.com/nlerner/breslov-rag/internal/llm"
	"github.com/nlerner/breslov-rag/internal/sefaria"
	"github.com/nlerner/breslov-rag/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `breslov-rag init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// createEmbedder creates an embeddings.Embedder based on config. The same
// embedder must serve ingestion and querying, or similarity scores become
// meaningless.
func createEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		apiKey := config.APIKey(config.ProviderOpenAI)
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, cfg.EmbeddingModel), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, 768, ""), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}
}

// createLLMProvider creates the answer model from config settings.
func createLLMProvider(cfg *config.Config) (llm.Provider, error) {
	return llm.NewProvider(llm.Options{
		Provider: string(cfg.Provider),
		Model:    cfg.Model,
		APIKey:   config.APIKey(cfg.Provider),
		RPM:      cfg.LLMRequestsPerMinute,
	})
}

// openStore opens the configured vector store backend.
func openStore(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder) (vectordb.Store, error) {
	switch cfg.Store.Mode {
	case config.StoreRemote:
		return vectordb.NewRemoteStore(ctx, vectordb.RemoteConfig{
			Host:      cfg.Store.Host,
			Port:      cfg.Store.Port,
			SSL:       cfg.Store.SSL,
			AuthToken: cfg.Store.AuthToken,
		}, cfg.Store.Collection, embedder)
	default:
		dir := filepath.Join(cfg.DataDir, "index")
		return vectordb.NewLocalStore(dir, cfg.Store.Collection, embedder)
	}
}

// openHistory opens the run-history database under the data directory.
func openHistory(cfg *config.Config) (*db.DB, error) {
	return db.Open(filepath.Join(cfg.DataDir, "breslov.db"))
}

// newEngine assembles and initializes the query engine from config.
// history may be nil for one-shot commands that do no bookkeeping.
func newEngine(ctx context.Context, cfg *config.Config, history *db.DB) (*engine.Engine, error) {
	embedder, err := createEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	provider, err := createLLMProvider(cfg)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg, embedder)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	eng := engine.New(store, provider, embedder, cfg.Model, history)
	if err := eng.Initialize(ctx); err != nil {
		return nil, err
	}
	return eng, nil
}

// newSefariaClient builds the upstream client from config.
func newSefariaClient(cfg *config.Config) *sefaria.Client {
	return sefaria.NewClient(
		sefaria.WithBaseURL(cfg.Sefaria.BaseURL),
		sefaria.WithPacing(time.Duration(cfg.Sefaria.PacingMS)*time.Millisecond),
	)
}
