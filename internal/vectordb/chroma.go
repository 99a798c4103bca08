package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nlerner/breslov-rag/internal/embeddings"
)

// RemoteStore implements Store against a networked Chroma server over its
// REST API. Embeddings are computed client-side with the shared embedder so
// both deployment modes stay in the same embedding space.
type RemoteStore struct {
	baseURL      string
	authToken    string
	name         string
	collectionID string
	embedder     embeddings.Embedder
	client       *http.Client
}

// RemoteConfig describes the connection to a Chroma server.
type RemoteConfig struct {
	Host      string
	Port      int
	SSL       bool
	AuthToken string
	Timeout   time.Duration
}

// NewRemoteStore connects to the server and creates the collection if it is
// missing.
func NewRemoteStore(ctx context.Context, cfg RemoteConfig, collection string, embedder embeddings.Embedder) (*RemoteStore, error) {
	scheme := "http"
	if cfg.SSL {
		scheme = "https"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	s := &RemoteStore{
		baseURL:   fmt.Sprintf("%s://%s:%d/api/v1", scheme, cfg.Host, cfg.Port),
		authToken: cfg.AuthToken,
		name:      collection,
		embedder:  embedder,
		client:    &http.Client{Timeout: timeout},
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *RemoteStore) ensureCollection(ctx context.Context) error {
	var col chromaCollection
	err := s.postJSON(ctx, "/collections", map[string]any{
		"name":          s.name,
		"get_or_create": true,
	}, &col)
	if err != nil {
		return fmt.Errorf("create remote collection %q: %w", s.name, err)
	}
	s.collectionID = col.ID
	return nil
}

func (s *RemoteStore) AddBatch(ctx context.Context, docs []Document) error {
	for start := 0; start < len(docs); start += InsertBatchSize {
		end := start + InsertBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		ids := make([]string, len(batch))
		bodies := make([]string, len(batch))
		metadatas := make([]map[string]string, len(batch))
		for i, doc := range batch {
			id := doc.ID
			if id == "" {
				id = uuid.NewString()
			}
			ids[i] = id
			bodies[i] = doc.Body
			metadatas[i] = EncodeMetadata(doc.Metadata)
		}

		vectors, err := s.embedder.Embed(ctx, bodies)
		if err != nil {
			return fmt.Errorf("embed batch at offset %d: %w", start, err)
		}

		err = s.postJSON(ctx, "/collections/"+s.collectionID+"/add", map[string]any{
			"ids":        ids,
			"embeddings": vectors,
			"documents":  bodies,
			"metadatas":  metadatas,
		}, nil)
		if err != nil {
			return fmt.Errorf("add batch at offset %d: %w", start, err)
		}
	}
	return nil
}

type chromaQueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float64        `json:"distances"`
}

func (s *RemoteStore) Query(ctx context.Context, text string, topK int) ([]SearchResult, error) {
	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}

	var resp chromaQueryResponse
	err = s.postJSON(ctx, "/collections/"+s.collectionID+"/query", map[string]any{
		"query_embeddings": [][]float32{vectors[0]},
		"n_results":        topK,
		"include":          []string{"documents", "metadatas", "distances"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("remote query: %w", err)
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	out := make([]SearchResult, 0, len(resp.IDs[0]))
	for i, id := range resp.IDs[0] {
		doc := Document{ID: id}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			doc.Body = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			doc.Metadata = DecodeMetadata(stringifyMap(resp.Metadatas[0][i]))
		}
		var score float64
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			// Chroma reports cosine distance; similarity = 1 - distance.
			score = clampScore(1 - resp.Distances[0][i])
		}
		out = append(out, SearchResult{Document: doc, Similarity: score})
	}
	return out, nil
}

type chromaGetResponse struct {
	IDs       []string         `json:"ids"`
	Documents []string         `json:"documents"`
	Metadatas []map[string]any `json:"metadatas"`
}

func (s *RemoteStore) GetAll(ctx context.Context, limit int) ([]Document, error) {
	body := map[string]any{
		"include": []string{"documents", "metadatas"},
	}
	if limit > 0 {
		body["limit"] = limit
	}

	var resp chromaGetResponse
	if err := s.postJSON(ctx, "/collections/"+s.collectionID+"/get", body, &resp); err != nil {
		return nil, fmt.Errorf("remote get: %w", err)
	}

	docs := make([]Document, 0, len(resp.IDs))
	for i, id := range resp.IDs {
		doc := Document{ID: id}
		if i < len(resp.Documents) {
			doc.Body = resp.Documents[i]
		}
		if i < len(resp.Metadatas) {
			doc.Metadata = DecodeMetadata(stringifyMap(resp.Metadatas[i]))
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *RemoteStore) Count(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/collections/"+s.collectionID+"/count", nil)
	if err != nil {
		return 0, err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("remote count: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("remote count: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("remote count: status %d: %s", resp.StatusCode, string(raw))
	}

	count, err := strconv.Atoi(string(bytes.TrimSpace(raw)))
	if err != nil {
		return 0, fmt.Errorf("remote count: unexpected body %q", string(raw))
	}
	return count, nil
}

func (s *RemoteStore) Reset(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/collections/"+s.name, nil)
	if err != nil {
		return err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete remote collection: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete remote collection: status %d", resp.StatusCode)
	}

	return s.ensureCollection(ctx)
}

func (s *RemoteStore) Close() error { return nil }

func (s *RemoteStore) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("POST %s: decode response: %w", path, err)
		}
	}
	return nil
}

func (s *RemoteStore) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}
}

// stringifyMap converts Chroma's loosely typed metadata values back to the
// flat string map the codec expects.
func stringifyMap(raw map[string]any) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		}
	}
	return out
}
