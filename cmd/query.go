package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nlerner/breslov-rag/internal/engine"
	"github.com/nlerner/breslov-rag/internal/models"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about the Breslov corpus",
	Long:  `Retrieves the most relevant passages and generates an answer grounded in them, with citations.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().String("lang", "fr", "answer language: fr, he, or en")
	queryCmd.Flags().Int("top-k", engine.DefaultTopK, "number of passages to retrieve (1-50)")
	queryCmd.Flags().Bool("json", false, "output the full result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	question := args[0]

	langStr, _ := cmd.Flags().GetString("lang")
	topK, _ := cmd.Flags().GetInt("top-k")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	lang, err := models.ParseLanguage(langStr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := newEngine(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}

	result, err := eng.Query(cmd.Context(), question, engine.QueryOptions{
		TopK:     topK,
		Language: lang,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range result.Sources {
			cite := src.Book
			if src.Chapter != "" {
				cite += ", chapter " + src.Chapter
			}
			if src.Verse != "" {
				cite += ", verse " + src.Verse
			}
			fmt.Printf("  %d. [%.1f%%] %s\n", i+1, src.Score*100, cite)
		}
	}
	fmt.Printf("\n(%d passages, %.2fs)\n", result.Metadata.ChunksRetrieved, result.Metadata.QueryTime)
	return nil
}
