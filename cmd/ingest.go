package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nlerner/breslov-rag/internal/catalog"
	"github.com/nlerner/breslov-rag/internal/chunker"
	"github.com/nlerner/breslov-rag/internal/ingest"
	"github.com/nlerner/breslov-rag/internal/progress"
	"github.com/nlerner/breslov-rag/internal/sefaria"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch the Breslov corpus and build the vector index",
	Long: `Fetches works from the Sefaria API, splits them into semantic chunks,
and loads them into the vector store. Use --book to ingest a subset;
glob patterns such as 'Likutei_*' are accepted.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("all", false, "ingest every cataloged work")
	ingestCmd.Flags().StringSlice("book", nil, "work slug or glob to ingest (repeatable)")
	ingestCmd.Flags().StringSlice("languages", nil, "restrict stored text to these languages (he, en)")
	ingestCmd.Flags().Bool("reset", false, "clear the index before loading")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	books, _ := cmd.Flags().GetStringSlice("book")
	languages, _ := cmd.Flags().GetStringSlice("languages")
	reset, _ := cmd.Flags().GetBool("reset")

	if !all && len(books) == 0 {
		return fmt.Errorf("nothing selected: pass --all or --book\nAvailable works: %s", catalogSlugs())
	}
	for _, lang := range languages {
		if lang != "he" && lang != "en" {
			return fmt.Errorf("unknown language %q: valid values are he, en", lang)
		}
	}
	if all {
		books = nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	embedder, err := createEmbedder(cfg)
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg, embedder)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer store.Close()

	history, err := openHistory(cfg)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer history.Close()

	fetcher := sefaria.NewFetcher(newSefariaClient(cfg)).WithBatchSize(cfg.Sefaria.BatchSize)
	ch := chunker.New(embedder).
		WithBufferSize(cfg.Chunking.BufferSize).
		WithBreakpointPercentile(cfg.Chunking.BreakpointPercentile)

	pipeline := ingest.New(fetcher, ch, store, history, progress.NewReporter())

	summary, err := pipeline.Run(context.Background(), ingest.Options{
		Selectors:      books,
		Languages:      languages,
		Reset:          reset,
		EmbeddingModel: embedder.Name(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nIngested %d works in %s\n", summary.Works, summary.Duration.Round(time.Second))
	fmt.Printf("  documents: %d (avg %d chars)\n", summary.Documents, summary.Stats.AvgChars)
	for book, n := range summary.Stats.PerBook {
		fmt.Printf("    %-24s %d\n", book, n)
	}
	if summary.FailedRefs > 0 {
		fmt.Printf("  failed refs: %d (see log above)\n", summary.FailedRefs)
	}
	return nil
}

func catalogSlugs() string {
	var slugs []string
	for _, w := range catalog.All() {
		slugs = append(slugs, w.Slug)
	}
	return strings.Join(slugs, ", ")
}
