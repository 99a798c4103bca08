package ingest

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nlerner/breslov-rag/internal/chunker"
	"github.com/nlerner/breslov-rag/internal/db"
	"github.com/nlerner/breslov-rag/internal/embeddings"
	"github.com/nlerner/breslov-rag/internal/progress"
	"github.com/nlerner/breslov-rag/internal/sefaria"
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

var _ embeddings.Embedder = hashEmbedder{}

const chapterText = "Rabbi Nachman taught that joy opens the gates of understanding. " +
	"Through melody the fallen sparks are gathered and returned to their root. " +
	"A person must search until finding some good point within, and judge themselves favorably through it."

// fakeSefaria serves every known chapter ref with the same bilingual text.
func fakeSefaria(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"ref": "Sippurei Maasiyot", "book": "Sippurei Maasiyot",
			"he": ["שמחה פותחת את שערי הבינה ומרפאת את הלב הנשבר של האדם."],
			"text": [%q]}`, chapterText)
	}))
}

func testPipeline(t *testing.T, ts *httptest.Server, history *db.DB) (*Pipeline, vectordb.Store) {
	t.Helper()
	client := sefaria.NewClient(
		sefaria.WithBaseURL(ts.URL),
		sefaria.WithPacing(0),
		sefaria.WithRetryPolicy(sefaria.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}),
	)
	store, err := vectordb.NewMemoryStore("test", hashEmbedder{})
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	p := New(sefaria.NewFetcher(client), chunker.New(hashEmbedder{}), store, history, progress.NopReporter{})
	return p, store
}

func TestRunIngestsSelectedWork(t *testing.T) {
	ts := fakeSefaria(t)
	defer ts.Close()

	history, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer history.Close()

	if _, err := history.RequestReindex("test"); err != nil {
		t.Fatalf("RequestReindex: %v", err)
	}

	p, store := testPipeline(t, ts, history)

	// Sippurei Maasiyot is the smallest work: 13 chapters.
	summary, err := p.Run(context.Background(), Options{
		Selectors:      []string{"Sippurei_Maasiyot"},
		EmbeddingModel: "hash-test",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Works != 1 {
		t.Errorf("works: got %d", summary.Works)
	}
	if summary.Documents == 0 {
		t.Fatal("no documents ingested")
	}
	if summary.FailedRefs != 0 {
		t.Errorf("failed refs: %d", summary.FailedRefs)
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != summary.Documents {
		t.Errorf("store holds %d documents, summary says %d", count, summary.Documents)
	}

	// Every stored document carries its citation prefix and book metadata.
	docs, err := store.GetAll(context.Background(), count)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	for _, doc := range docs {
		if !strings.HasPrefix(doc.Body, "[Sippurei Maasiyot") {
			t.Errorf("missing citation prefix: %q", doc.Body[:40])
		}
		if doc.Metadata.Book != "Sippurei Maasiyot" {
			t.Errorf("book metadata: %q", doc.Metadata.Book)
		}
	}

	// The run was recorded and the pending reindex request fulfilled.
	run, err := history.LastRun()
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if run == nil || run.Documents != summary.Documents || run.EmbeddingModel != "hash-test" {
		t.Errorf("recorded run: %+v", run)
	}
	pending, err := history.PendingReindexCount()
	if err != nil {
		t.Fatalf("PendingReindexCount: %v", err)
	}
	if pending != 0 {
		t.Errorf("pending reindex requests: %d", pending)
	}
}

func TestRunUnknownSelector(t *testing.T) {
	ts := fakeSefaria(t)
	defer ts.Close()

	p, _ := testPipeline(t, ts, nil)
	if _, err := p.Run(context.Background(), Options{Selectors: []string{"No_Such_Book"}}); err == nil {
		t.Fatal("expected error for unknown selector")
	}
}

func TestRunLanguageFilter(t *testing.T) {
	ts := fakeSefaria(t)
	defer ts.Close()

	p, store := testPipeline(t, ts, nil)

	summary, err := p.Run(context.Background(), Options{
		Selectors: []string{"Sippurei_Maasiyot"},
		Languages: []string{"en"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Documents == 0 {
		t.Fatal("no documents ingested")
	}

	docs, err := store.GetAll(context.Background(), summary.Documents)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	for _, doc := range docs {
		if strings.Contains(doc.Body, "שמחה") {
			t.Errorf("hebrew text stored despite en-only filter: %q", doc.Body)
		}
		if doc.Metadata.Language != "en" {
			t.Errorf("language metadata: %q", doc.Metadata.Language)
		}
	}
}

func TestRunResetClearsIndex(t *testing.T) {
	ts := fakeSefaria(t)
	defer ts.Close()

	p, store := testPipeline(t, ts, nil)

	if _, err := p.Run(context.Background(), Options{Selectors: []string{"Sippurei_Maasiyot"}}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, _ := store.Count(context.Background())

	// Without reset the second run appends; with reset counts stay flat.
	summary, err := p.Run(context.Background(), Options{Selectors: []string{"Sippurei_Maasiyot"}, Reset: true})
	if err != nil {
		t.Fatalf("reset run: %v", err)
	}
	count, _ := store.Count(context.Background())
	if count != summary.Documents || count != first {
		t.Errorf("after reset run: store %d, summary %d, first run %d", count, summary.Documents, first)
	}
}
