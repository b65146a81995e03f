// Package main contains the escudo CLI commands.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/escudo-app/escudo/internal/cli"
	"github.com/escudo-app/escudo/internal/importer"
	"github.com/escudo-app/escudo/internal/ingest"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import transactions from a statement file",
		Long: `Import transactions from a CSV, JSON, or OFX/QFX statement export.

Rows that fail to parse are reported individually and never abort the
import. Transactions already seen in the last 90 days are skipped as
duplicates.

Examples:
  escudo import --origin joao statement.csv
  escudo import --origin joao --bank millennium movimentos.ofx`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().StringP("origin", "o", "", "Account owner the transactions belong to (required)")
	cmd.Flags().StringP("bank", "b", "", "Source institution")
	cmd.Flags().Bool("dry-run", false, "Parse and deduplicate without saving")

	_ = cmd.MarkFlagRequired("origin")
	_ = viper.BindPFlag("import.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]
	origin, _ := cmd.Flags().GetString("origin")
	bank, _ := cmd.Flags().GetString("bank")
	dryRun := viper.GetBool("import.dry_run")

	reader, err := ingest.ForFile(path)
	if err != nil {
		return err
	}

	file, err := os.Open(path) // #nosec G304 -- user-supplied import path
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("Failed to close import file", "error", closeErr)
		}
	}()

	rows, rowErrs, err := reader.Read(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if dryRun {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Dry run: parsed %d rows, %d row errors", len(rows), len(rowErrs))))
		for _, rowErr := range rowErrs {
			fmt.Println(cli.FormatWarning(rowErr.Error()))
		}
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	summary, err := importer.New(store).Import(ctx, rows, rowErrs, importer.Options{
		Origin: origin,
		Bank:   bank,
	})
	if err != nil {
		return err
	}

	displaySummary(summary)
	return nil
}

func displaySummary(summary *importer.Summary) {
	fmt.Println(cli.FormatTitle("Import summary"))
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%d transactions imported", summary.Imported)))

	if summary.SkippedDuplicates > 0 {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("%d duplicates skipped:", summary.SkippedDuplicates)))
		for _, dup := range summary.Duplicates {
			fmt.Println("  " + cli.SubtleStyle.Render(fmt.Sprintf("%s %s already imported as %s",
				dup.Date.Format("2006-01-02"), dup.Description, dup.PotentialDuplicateID)))
		}
	}

	if len(summary.RowErrors) > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d rows could not be parsed:", len(summary.RowErrors))))
		for _, rowErr := range summary.RowErrors {
			fmt.Println("  " + cli.SubtleStyle.Render(rowErr.Error()))
		}
	}
}
