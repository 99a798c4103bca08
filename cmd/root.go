package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "breslov-rag",
	Short: "Question answering over the works of Rabbi Nachman of Breslov",
	Long: `breslov-rag ingests the Breslov corpus from the Sefaria library,
builds a semantic vector index over it, and answers questions grounded
in the retrieved passages. Answers cite their sources by book, chapter,
and verse, in French, Hebrew, or English.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".breslov.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
