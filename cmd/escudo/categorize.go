package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/escudo-app/escudo/internal/cli"
	"github.com/escudo-app/escudo/internal/config"
	"github.com/escudo-app/escudo/internal/engine"
	"github.com/escudo-app/escudo/internal/llm"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize pending transactions",
		Long: `Categorize pending transactions through the layered pipeline:
keyword rules first, similarity against recent history second, and the AI
classifier last. Without an API key the AI layer is skipped and unmatched
transactions stay pending.

Examples:
  escudo categorize             # One batch of up to 50 transactions
  escudo categorize --all       # Drain every pending transaction
  escudo categorize --batch-limit 100 --concurrency 8`,
		RunE: runCategorize,
	}

	cmd.Flags().Int("batch-limit", 0, "Transactions per batch (default 50)")
	cmd.Flags().Int("concurrency", 0, "Concurrent AI calls (default 4)")
	cmd.Flags().Float64("threshold", 0, "Confidence below which results are flagged (default 0.7)")
	cmd.Flags().Bool("all", false, "Keep running batches until nothing is left to categorize")

	_ = viper.BindPFlag("categorization.batch_limit", cmd.Flags().Lookup("batch-limit"))
	_ = viper.BindPFlag("categorization.concurrency", cmd.Flags().Lookup("concurrency"))
	_ = viper.BindPFlag("categorization.threshold", cmd.Flags().Lookup("threshold"))

	return cmd
}

func runCategorize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	drainAll, _ := cmd.Flags().GetBool("all")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	classifier, err := llm.NewClassifier(config.LoadAIConfig(), slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create AI classifier: %w", err)
	}
	defer classifier.Close()

	if !classifier.IsConfigured() {
		fmt.Println(cli.FormatInfo("AI classifier not configured; using rules and history only"))
	}

	orch := engine.NewWithConfig(store, classifier, engine.Config{
		BatchLimit:          viper.GetInt("categorization.batch_limit"),
		MaxConcurrent:       viper.GetInt("categorization.concurrency"),
		ConfidenceThreshold: viper.GetFloat64("categorization.threshold"),
	})

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan][bold]Categorizing transactions...[reset]"),
		progressbar.OptionSpinnerType(14),
	)

	var totals engine.Stats
	for {
		stats, outcomes, runErr := orch.CategorizeBatch(ctx)
		if runErr != nil {
			return runErr
		}
		_ = bar.Add(len(outcomes))

		totals.Processed += stats.Processed
		totals.ByRule += stats.ByRule
		totals.ByPattern += stats.ByPattern
		totals.ByAI += stats.ByAI
		totals.Flagged += stats.Flagged
		totals.Skipped += stats.Skipped
		totals.Errors += stats.Errors

		// A batch that categorized nothing will not make progress on retry.
		if !drainAll || stats.Processed == 0 {
			break
		}
	}
	_ = bar.Finish()

	displayStats(totals)
	return nil
}

func displayStats(stats engine.Stats) {
	fmt.Println(cli.FormatTitle("Categorization results"))
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%d transactions categorized", stats.Processed)))
	fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf(
		"  by rule: %d  by history: %d  by AI: %d", stats.ByRule, stats.ByPattern, stats.ByAI)))

	if stats.Flagged > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d low-confidence results flagged for review", stats.Flagged)))
	}
	if stats.Skipped > 0 {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("%d transactions skipped", stats.Skipped)))
	}
	if stats.Errors > 0 {
		fmt.Println(cli.FormatError(fmt.Sprintf("%d transactions failed and remain pending", stats.Errors)))
	}
}
