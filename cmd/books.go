package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nlerner/breslov-rag/internal/catalog"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List the works in the catalog and the index",
	RunE:  runBooks,
}

func init() {
	booksCmd.Flags().Bool("indexed", false, "show only works present in the index")
	rootCmd.AddCommand(booksCmd)
}

func runBooks(cmd *cobra.Command, args []string) error {
	indexedOnly, _ := cmd.Flags().GetBool("indexed")

	if !indexedOnly {
		fmt.Println("Cataloged works:")
		for _, w := range catalog.All() {
			parts := ""
			if w.Parts > 1 {
				parts = fmt.Sprintf(" (%d parts)", w.Parts)
			}
			fmt.Printf("  %-24s %4d chapters%s\n", w.Slug, w.TotalChapters(), parts)
		}
		fmt.Println()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := newEngine(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}

	books, err := eng.ListBooks(cmd.Context())
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Println("Index is empty. Run `breslov-rag ingest --all` to populate it.")
		return nil
	}

	fmt.Println("Indexed works:")
	for _, b := range books {
		fmt.Printf("  %-24s %4d chapters  [%s]\n", b.Title, b.NumChapters, strings.Join(b.Languages, ", "))
	}
	return nil
}
