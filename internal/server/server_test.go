package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/nlerner/breslov-rag/internal/db"
	"github.com/nlerner/breslov-rag/internal/engine"
	"github.com/nlerner/breslov-rag/internal/llm"
	"github.com/nlerner/breslov-rag/internal/models"
	"github.com/nlerner/breslov-rag/internal/vectordb"
)

type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 16)
		for j, ch := range text {
			vec[(int(ch)+j)%16]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for j := range vec {
				vec[j] = float32(float64(vec[j]) / norm)
			}
		}
		out[i] = vec
	}
	return out, nil
}

func (hashEmbedder) Dimensions() int { return 16 }
func (hashEmbedder) Name() string    { return "hash-test" }

type fixedProvider struct{ answer string }

func (p *fixedProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: p.answer, Model: req.Model}, nil
}

func (p *fixedProvider) Name() string { return "fixed" }

func testDocs(n int) []vectordb.Document {
	bodies := []string{
		"Joy is a great mitzvah and settles the mind for serving the Creator with a whole heart.",
		"Hitbodedut means speaking alone with the Creator in one's own words, in a field or a room.",
		"The lost princess is sought by the viceroy through deserts, palaces, and impossible years.",
		"A simple melody gathers the scattered sparks and returns them joyfully to their root above.",
		"Finding one good point in oneself tips the scale and lets a person begin again in gladness.",
	}
	docs := make([]vectordb.Document, 0, n)
	for i := 0; i < n && i < len(bodies); i++ {
		docs = append(docs, vectordb.Document{
			Body: bodies[i],
			Metadata: vectordb.Metadata{
				Book: "Likutei Moharan", Ref: "Likutei_Moharan.1", Language: "en",
				Chapter: "1", ChunkIndex: i, TotalChunks: n,
			},
		})
	}
	return docs
}

// newTestServer builds a ready server over an in-memory index. history may
// be nil; initialize false leaves the engine unready.
func newTestServer(t *testing.T, docs []vectordb.Document, history *db.DB, initialize bool, cfg Config) *Server {
	t.Helper()
	store, err := vectordb.NewMemoryStore("test", hashEmbedder{})
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	if len(docs) > 0 {
		if err := store.AddBatch(context.Background(), docs); err != nil {
			t.Fatalf("AddBatch: %v", err)
		}
	}
	eng := engine.New(store, &fixedProvider{answer: "La joie est le remède."}, hashEmbedder{}, "test-model", history)
	if initialize {
		if err := eng.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
	}
	return New(cfg, eng, nil)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, nil, true, Config{})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health: got %d", rec.Code)
	}

	unready := newTestServer(t, nil, nil, false, Config{})
	rec = httptest.NewRecorder()
	unready.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unready health: got %d", rec.Code)
	}
}

func postQuery(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestQueryEndpoint(t *testing.T) {
	s := newTestServer(t, testDocs(5), nil, true, Config{})

	rec := postQuery(t, s, `{"question": "What did Rabbi Nachman teach about joy?", "language": "en", "top_k": 3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("query: got %d: %s", rec.Code, rec.Body.String())
	}

	var result models.QueryResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Answer == "" {
		t.Error("empty answer")
	}
	if len(result.Sources) != 3 {
		t.Errorf("got %d sources, want 3", len(result.Sources))
	}
	if result.Metadata.ChunksRetrieved != len(result.Sources) {
		t.Errorf("metadata mismatch: %+v", result.Metadata)
	}
	if result.Metadata.Language != models.LangEnglish {
		t.Errorf("language: got %q", result.Metadata.Language)
	}
}

func TestQueryValidation(t *testing.T) {
	s := newTestServer(t, testDocs(2), nil, true, Config{})

	cases := []struct {
		name string
		body string
	}{
		{"missing question", `{}`},
		{"bad language", `{"question": "q", "language": "de"}`},
		{"top_k too large", `{"question": "q", "top_k": 51}`},
		{"negative top_k", `{"question": "q", "top_k": -1}`},
		{"malformed JSON", `{"question": `},
	}
	for _, tc := range cases {
		if rec := postQuery(t, s, tc.body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", tc.name, rec.Code)
		}
	}
}

func TestQueryNotReady(t *testing.T) {
	s := newTestServer(t, nil, nil, false, Config{})
	if rec := postQuery(t, s, `{"question": "q"}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d, want 503", rec.Code)
	}
}

func TestBooksAndStatsEndpoints(t *testing.T) {
	s := newTestServer(t, testDocs(3), nil, true, Config{})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/books", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("books: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Likutei Moharan") {
		t.Errorf("books response: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: got %d", rec.Code)
	}
	var stats models.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.TotalDocuments != 3 || stats.TotalBooks != 1 {
		t.Errorf("stats: %+v", stats)
	}
}

func TestReindexEndpoint(t *testing.T) {
	history, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer history.Close()

	s := newTestServer(t, testDocs(1), history, true, Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/reindex", bytes.NewBufferString(`{"reason": "model change"}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("reindex: got %d: %s", rec.Code, rec.Body.String())
	}

	pending, err := history.PendingReindexCount()
	if err != nil {
		t.Fatalf("PendingReindexCount: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending requests: got %d, want 1", pending)
	}
}

func TestQueryRateLimit(t *testing.T) {
	s := newTestServer(t, testDocs(1), nil, true, Config{RatePerMinute: 2})

	allowed := 0
	var limited bool
	for i := 0; i < 5; i++ {
		rec := postQuery(t, s, `{"question": "q"}`)
		switch rec.Code {
		case http.StatusOK:
			allowed++
		case http.StatusTooManyRequests:
			limited = true
		default:
			t.Fatalf("unexpected status %d", rec.Code)
		}
	}
	if allowed != 2 || !limited {
		t.Errorf("allowed %d requests, limited=%v; want 2 allowed then 429s", allowed, limited)
	}
}

func TestChatWebSocket(t *testing.T) {
	s := newTestServer(t, testDocs(5), nil, true, Config{})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(chatRequest{Type: "question", Content: "What about joy?", Language: "en"}); err != nil {
		t.Fatalf("writing question: %v", err)
	}

	var resp chatResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("reading answer: %v", err)
	}
	if resp.Type != "answer" || resp.Content == "" {
		t.Errorf("response: %+v", resp)
	}
	if len(resp.Sources) > chatSourceLimit {
		t.Errorf("chat carried %d sources, cap is %d", len(resp.Sources), chatSourceLimit)
	}

	// Unknown message types produce an error frame, not a closed socket.
	if err := conn.WriteJSON(chatRequest{Type: "mystery"}); err != nil {
		t.Fatalf("writing unknown type: %v", err)
	}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("reading error frame: %v", err)
	}
	if resp.Type != "error" {
		t.Errorf("expected error frame, got %+v", resp)
	}
}
