package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer history.Close()

	eng, err := newEngine(cmd.Context(), cfg, history)
	if err != nil {
		return err
	}

	stats, err := eng.GetStats(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Printf("Documents:       %d\n", stats.TotalDocuments)
	fmt.Printf("Books:           %d (%s)\n", stats.TotalBooks, strings.Join(stats.Books, ", "))
	fmt.Printf("Languages:       %s\n", strings.Join(stats.Languages, ", "))
	fmt.Printf("Embedding model: %s\n", stats.EmbeddingModel)
	fmt.Printf("LLM model:       %s\n", stats.LLMModel)

	if run, err := history.LastRun(); err == nil && run != nil {
		fmt.Printf("Last ingestion:  %s (%d documents, %d failed refs)\n",
			run.FinishedAt.Format("2006-01-02 15:04"), run.Documents, run.FailedRefs)
	}
	if pending, err := history.PendingReindexCount(); err == nil && pending > 0 {
		fmt.Printf("Pending reindex requests: %d (run `breslov-rag ingest --all --reset`)\n", pending)
	}
	return nil
}
