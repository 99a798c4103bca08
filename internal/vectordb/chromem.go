package vectordb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/nlerner/breslov-rag/internal/embeddings"
)

// LocalStore implements Store on top of chromem-go, the local on-disk
// deployment mode. The database persists writes as they happen; Close is
// a no-op kept for interface symmetry with the remote mode.
type LocalStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	embedFunc  chromem.EmbeddingFunc
}

// NewLocalStore opens (or creates) a persistent collection under dir.
func NewLocalStore(dir, collection string, embedder embeddings.Embedder) (*LocalStore, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open local vector db at %s: %w", dir, err)
	}
	return newLocalStore(db, collection, embedder)
}

// NewMemoryStore creates a non-persistent LocalStore, used in tests and
// throwaway runs.
func NewMemoryStore(collection string, embedder embeddings.Embedder) (*LocalStore, error) {
	return newLocalStore(chromem.NewDB(), collection, embedder)
}

func newLocalStore(db *chromem.DB, collection string, embedder embeddings.Embedder) (*LocalStore, error) {
	ef := embeddings.ToChromemFunc(embedder)
	col, err := db.GetOrCreateCollection(collection, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection %q: %w", collection, err)
	}
	return &LocalStore{
		db:         db,
		collection: col,
		name:       collection,
		embedFunc:  ef,
	}, nil
}

func (s *LocalStore) AddBatch(ctx context.Context, docs []Document) error {
	for start := 0; start < len(docs); start += InsertBatchSize {
		end := start + InsertBatchSize
		if end > len(docs) {
			end = len(docs)
		}

		batch := make([]chromem.Document, 0, end-start)
		for _, doc := range docs[start:end] {
			id := doc.ID
			if id == "" {
				id = uuid.NewString()
			}
			batch = append(batch, chromem.Document{
				ID:       id,
				Content:  doc.Body,
				Metadata: EncodeMetadata(doc.Metadata),
			})
		}

		if err := s.collection.AddDocuments(ctx, batch, 1); err != nil {
			return fmt.Errorf("add batch at offset %d: %w", start, err)
		}
	}
	return nil
}

func (s *LocalStore) Query(ctx context.Context, text string, topK int) ([]SearchResult, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	// chromem-go requires nResults <= collection size.
	if topK > count {
		topK = count
	}

	results, err := s.collection.Query(ctx, text, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("local query: %w", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			Document: Document{
				ID:       r.ID,
				Body:     r.Content,
				Metadata: DecodeMetadata(r.Metadata),
			},
			Similarity: clampScore(float64(r.Similarity)),
		}
	}
	return out, nil
}

func (s *LocalStore) GetAll(ctx context.Context, limit int) ([]Document, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	// chromem-go has no metadata scan; a nearest-neighbor query with
	// limit = collection size enumerates every stored document.
	results, err := s.collection.Query(ctx, "stored passages", limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("local scan: %w", err)
	}

	docs := make([]Document, len(results))
	for i, r := range results {
		docs[i] = Document{
			ID:       r.ID,
			Body:     r.Content,
			Metadata: DecodeMetadata(r.Metadata),
		}
	}
	return docs, nil
}

func (s *LocalStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

func (s *LocalStore) Reset(ctx context.Context) error {
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("delete collection %q: %w", s.name, err)
	}
	col, err := s.db.GetOrCreateCollection(s.name, nil, s.embedFunc)
	if err != nil {
		return fmt.Errorf("recreate collection %q: %w", s.name, err)
	}
	s.collection = col
	return nil
}

func (s *LocalStore) Close() error { return nil }

// clampScore forces a backend similarity into [0,1]. Cosine similarity can
// go slightly negative for unrelated texts.
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
