// Package engine answers questions about the Breslov corpus by retrieving
// relevant passages from the vector store and grounding an LLM on them.
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/nlerner/breslov-rag/internal/db"
	"github.com/nlerner/breslov-rag/internal/embeddings"
	"github.com/nlerner/breslov-rag/internal/llm"
	"github.com/nlerner/breslov-rag/internal/models"
	"github.com/nlerner/breslov-rag/internal/vectordb"
)

const (
	// DefaultTopK is how many passages ground an answer when the caller
	// does not ask for a specific depth.
	DefaultTopK = 5
	// MaxTopK bounds retrieval depth; larger requests are clamped.
	MaxTopK = 50
	// MaxSourceChars caps the passage text echoed back in a response.
	MaxSourceChars = 500
)

// QueryOptions tune one query. Zero values fall back to defaults.
type QueryOptions struct {
	TopK     int
	Language models.Language
}

// Engine ties the vector store, the embedder, and the answer model into
// one query surface. It is safe for concurrent use once initialized.
type Engine struct {
	store    vectordb.Store
	provider llm.Provider
	embedder embeddings.Embedder
	model    string
	history  *db.DB

	mu    sync.RWMutex
	ready bool
}

// New assembles an Engine. history may be nil when run bookkeeping is not
// wanted, e.g. in one-shot CLI queries.
func New(store vectordb.Store, provider llm.Provider, embedder embeddings.Embedder, model string, history *db.DB) *Engine {
	return &Engine{
		store:    store,
		provider: provider,
		embedder: embedder,
		model:    model,
		history:  history,
	}
}

// Initialize verifies the store is reachable and marks the engine ready.
// Calling it again after success is a no-op; a failure leaves the engine
// unready and returns the underlying error.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready {
		return nil
	}

	count, err := e.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}
	if count == 0 {
		log.Printf("engine: index is empty, run 'breslov-rag ingest' to populate it")
	} else {
		log.Printf("engine: ready with %d indexed passages", count)
	}

	e.ready = true
	return nil
}

// Ready reports whether Initialize has succeeded.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready
}

// Query retrieves the passages closest to question and asks the model for
// an answer grounded on them. An empty index yields an answer with zero
// sources rather than an error.
func (e *Engine) Query(ctx context.Context, question string, opts QueryOptions) (*models.QueryResult, error) {
	if !e.Ready() {
		return nil, ErrNotReady
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	lang := opts.Language
	if !lang.Valid() {
		lang = models.LangFrench
	}

	start := time.Now()

	augmented := augmentQuestion(question, lang)

	results, err := e.store.Query(ctx, augmented, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving passages: %w", err)
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: buildPrompt(augmented, results)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	sources := make([]models.SourceDocument, 0, len(results))
	for _, r := range results {
		sources = append(sources, toSourceDocument(r))
	}

	return &models.QueryResult{
		Answer:  resp.Content,
		Sources: sources,
		Metadata: models.QueryMetadata{
			QueryTime:       time.Since(start).Seconds(),
			ChunksRetrieved: len(sources),
			Language:        lang,
		},
	}, nil
}

// toSourceDocument trims a search hit down to the response shape: capped
// text, clamped score, citation fields pulled out of the metadata.
func toSourceDocument(r vectordb.SearchResult) models.SourceDocument {
	text := r.Document.Body
	// The cap counts characters, not bytes, so Hebrew passages keep as
	// much text as English ones.
	if utf8.RuneCountInString(text) > MaxSourceChars {
		runes := []rune(text)
		text = string(runes[:MaxSourceChars])
	}

	score := r.Similarity
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	m := r.Document.Metadata
	doc := models.SourceDocument{
		Book:     m.Book,
		Chapter:  m.Chapter,
		Verse:    m.Verse,
		Text:     text,
		Score:    score,
		Language: m.Language,
	}
	if m.SourceURL != "" || m.Ref != "" {
		doc.Metadata = map[string]string{}
		if m.Ref != "" {
			doc.Metadata["ref"] = m.Ref
		}
		if m.SourceURL != "" {
			doc.Metadata["source_url"] = m.SourceURL
		}
	}
	return doc
}

// ListBooks reports the works present in the index. Chapter counts are
// the distinct chapters actually stored, so a partially ingested work
// reports its real coverage.
func (e *Engine) ListBooks(ctx context.Context) ([]models.BookInfo, error) {
	if !e.Ready() {
		return nil, ErrNotReady
	}

	count, err := e.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	docs, err := e.store.GetAll(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}

	type bookAgg struct {
		languages map[string]bool
		chapters  map[string]bool
	}
	byBook := make(map[string]*bookAgg)
	for _, doc := range docs {
		b := byBook[doc.Metadata.Book]
		if b == nil {
			b = &bookAgg{languages: make(map[string]bool), chapters: make(map[string]bool)}
			byBook[doc.Metadata.Book] = b
		}
		if doc.Metadata.Language != "" {
			b.languages[doc.Metadata.Language] = true
		}
		if doc.Metadata.Chapter != "" {
			b.chapters[doc.Metadata.Chapter] = true
		}
	}

	books := make([]models.BookInfo, 0, len(byBook))
	for title, agg := range byBook {
		books = append(books, models.BookInfo{
			Title:       title,
			Slug:        strings.ReplaceAll(title, " ", "_"),
			Languages:   sortedKeys(agg.languages),
			NumChapters: len(agg.chapters),
		})
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

// GetStats summarizes the index and the configured models.
func (e *Engine) GetStats(ctx context.Context) (*models.Stats, error) {
	if !e.Ready() {
		return nil, ErrNotReady
	}

	count, err := e.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting stats: %w", err)
	}
	docs, err := e.store.GetAll(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("collecting stats: %w", err)
	}

	books := make(map[string]bool)
	languages := make(map[string]bool)
	for _, doc := range docs {
		if doc.Metadata.Book != "" {
			books[doc.Metadata.Book] = true
		}
		if doc.Metadata.Language != "" {
			languages[doc.Metadata.Language] = true
		}
	}

	return &models.Stats{
		TotalDocuments: count,
		TotalBooks:     len(books),
		Languages:      sortedKeys(languages),
		Books:          sortedKeys(books),
		EmbeddingModel: e.embedder.Name(),
		LLMModel:       e.model,
	}, nil
}

// Reindex records a rebuild request. The index itself is rebuilt by the
// next ingestion run, which requires API credentials this process may not
// hold; the request makes the need visible to operators and to stats.
func (e *Engine) Reindex(reason string) (string, error) {
	if e.history == nil {
		return "", fmt.Errorf("reindex requests need run history enabled")
	}
	id, err := e.history.RequestReindex(reason)
	if err != nil {
		return "", err
	}
	log.Printf("engine: reindex requested (%s), run 'breslov-rag ingest --reset' to fulfill it", id)
	return id, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
