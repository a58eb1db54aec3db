package main

import (
	"fmt"

	"TutorChat/internal/chatbot"
	"TutorChat/internal/export"
	"TutorChat/internal/journal"

	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent attempts from the journal",
	Long: `Show the most recent evaluated attempts, newest first.

Attempts are only recorded while the journal is enabled (--journal or
TUTOR_JOURNAL_ENABLED=true).

Formats:
  text  Human-readable listing (default)
  json  JSON array
  yaml  YAML document
  md    Markdown training journal`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit <= 0 {
			return fmt.Errorf("--limit must be positive, got %d", historyLimit)
		}

		var exporter export.Exporter
		if historyFormat != "text" {
			var err error
			exporter, err = export.NewExporter(historyFormat)
			if err != nil {
				return err
			}
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer store.Close()

		attempts, err := store.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to load attempts: %w", err)
		}

		out := cmd.OutOrStdout()
		if exporter != nil {
			return exporter.Export(attempts, out)
		}

		if len(attempts) == 0 {
			fmt.Fprintln(out, "No attempts recorded yet.")
			return nil
		}

		renderer := chatbot.NewRenderer(cfg.NoColor)
		for _, a := range attempts {
			fmt.Fprint(out, renderer.Attempt(a))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", journal.DefaultLimit, "Number of attempts to show")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "Output format (text|json|yaml|md)")
	rootCmd.AddCommand(historyCmd)
}
