// Package ingest drives the offline pipeline: fetch works from Sefaria,
// chunk them semantically, and load the vector index.
package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nlerner/breslov-rag/internal/catalog"
	"github.com/nlerner/breslov-rag/internal/chunker"
	"github.com/nlerner/breslov-rag/internal/db"
	"github.com/nlerner/breslov-rag/internal/models"
	"github.com/nlerner/breslov-rag/internal/progress"
	"github.com/nlerner/breslov-rag/internal/sefaria"
	"github.com/nlerner/breslov-rag/internal/vectordb"
)

// Options select what to ingest and how.
type Options struct {
	// Selectors are catalog slugs or globs; empty means every work.
	Selectors []string
	// Languages restricts which text columns are kept ("he", "en");
	// empty keeps both.
	Languages []string
	// Reset clears the index before loading.
	Reset bool
	// EmbeddingModel is recorded with the run for later audits.
	EmbeddingModel string
}

// Summary reports what one run accomplished.
type Summary struct {
	Works      int
	Documents  int
	FailedRefs int
	Stats      chunker.ChunkStats
	Duration   time.Duration
}

// Pipeline wires the fetcher, chunker, store, and bookkeeping together.
// History may be nil to skip run recording.
type Pipeline struct {
	fetcher  *sefaria.Fetcher
	chunker  *chunker.Chunker
	store    vectordb.Store
	history  *db.DB
	reporter progress.Reporter
}

// New assembles a Pipeline.
func New(fetcher *sefaria.Fetcher, ch *chunker.Chunker, store vectordb.Store, history *db.DB, reporter progress.Reporter) *Pipeline {
	if reporter == nil {
		reporter = progress.NopReporter{}
	}
	return &Pipeline{
		fetcher:  fetcher,
		chunker:  ch,
		store:    store,
		history:  history,
		reporter: reporter,
	}
}

// Run executes one ingestion. Works are processed in catalog order; a
// chapter that keeps failing is skipped and counted, not fatal. The run
// is recorded and any pending reindex requests are marked fulfilled.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Summary, error) {
	works, err := catalog.Match(opts.Selectors)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	if opts.Reset {
		log.Printf("ingest: resetting index before load")
		if err := p.store.Reset(ctx); err != nil {
			return nil, fmt.Errorf("resetting index: %w", err)
		}
	}

	total := 0
	for _, w := range works {
		total += w.TotalChapters()
	}
	p.reporter.Start(total)
	defer p.reporter.Finish()

	summary := &Summary{Works: len(works)}
	var allDocs []vectordb.Document
	done := 0

	for _, work := range works {
		work := work
		onChapter := func() {
			done++
			p.reporter.Update(done, work.Title)
		}

		result, err := p.fetcher.FetchWork(ctx, work, onChapter)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", work.Title, err)
		}
		summary.FailedRefs += len(result.Failed)

		texts := toSourceTexts(work, result.Passages, opts.Languages)
		docs, err := p.chunker.ChunkBatch(ctx, texts, nil)
		if err != nil {
			return nil, fmt.Errorf("chunking %s: %w", work.Title, err)
		}

		docs = chunker.Optimize(docs)
		allDocs = append(allDocs, docs...)
		log.Printf("ingest: %s yielded %d documents (%d refs failed)", work.Title, len(docs), len(result.Failed))
	}

	if err := p.store.AddBatch(ctx, allDocs); err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}

	summary.Documents = len(allDocs)
	summary.Stats = chunker.CollectStats(allDocs)
	summary.Duration = time.Since(start)

	p.record(works, opts, summary, start)
	return summary, nil
}

// record persists the run and clears pending reindex requests. Failures
// here are logged, not fatal: the index is already loaded.
func (p *Pipeline) record(works []catalog.Work, opts Options, summary *Summary, start time.Time) {
	if p.history == nil {
		return
	}

	slugs := make([]string, 0, len(works))
	for _, w := range works {
		slugs = append(slugs, w.Slug)
	}

	runID, err := p.history.RecordRun(db.IngestRun{
		StartedAt:      start,
		FinishedAt:     time.Now(),
		Books:          strings.Join(slugs, ","),
		Documents:      summary.Documents,
		FailedRefs:     summary.FailedRefs,
		ResetIndex:     opts.Reset,
		EmbeddingModel: opts.EmbeddingModel,
	})
	if err != nil {
		log.Printf("ingest: recording run failed: %v", err)
		return
	}
	if err := p.history.FulfillReindexRequests(runID); err != nil {
		log.Printf("ingest: fulfilling reindex requests failed: %v", err)
	}
}

// toSourceTexts adapts fetched passages to the chunker's input shape,
// dropping language columns excluded by the filter. The language tag
// reflects the richer half: English when a translation exists, Hebrew
// otherwise.
func toSourceTexts(work catalog.Work, passages []sefaria.Passage, languages []string) []models.SourceText {
	texts := make([]models.SourceText, 0, len(passages))
	for _, p := range passages {
		hebrew := p.Hebrew
		english := p.English
		if !keepLanguage(languages, "he") {
			hebrew = ""
		}
		if !keepLanguage(languages, "en") {
			english = ""
		}
		if strings.TrimSpace(hebrew) == "" && strings.TrimSpace(english) == "" {
			continue
		}

		lang := string(models.LangHebrew)
		if strings.TrimSpace(english) != "" {
			lang = string(models.LangEnglish)
		}
		texts = append(texts, models.SourceText{
			Title:         work.Title,
			Ref:           p.Ref,
			Hebrew:        hebrew,
			English:       english,
			Language:      lang,
			VersionTitle:  p.VersionTitle,
			VersionSource: p.VersionSource,
		})
	}
	return texts
}

func keepLanguage(languages []string, lang string) bool {
	if len(languages) == 0 {
		return true
	}
	for _, l := range languages {
		if l == lang {
			return true
		}
	}
	return false
}
