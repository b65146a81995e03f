// Package importer runs the import pipeline: raw rows are normalized,
// fingerprinted, deduplicated against recent history, and persisted as
// pending-review transactions.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/escudo-app/escudo/internal/dedup"
	"github.com/escudo-app/escudo/internal/ingest"
	"github.com/escudo-app/escudo/internal/model"
	"github.com/escudo-app/escudo/internal/normalize"
	"github.com/escudo-app/escudo/internal/service"
)

// Importer persists deduplicated transaction batches.
type Importer struct {
	storage service.Storage
}

// New creates an importer on the given storage.
func New(storage service.Storage) *Importer {
	return &Importer{storage: storage}
}

// Options scope an import to its owner and source institution.
type Options struct {
	Origin string
	Bank   string
}

// Summary is the import contract: partial success, never all-or-nothing.
// Malformed rows land in RowErrors, skipped duplicates keep the ID of the
// transaction they collided with in PotentialDuplicateID, and everything
// else is imported.
type Summary struct {
	Transactions      []model.Transaction
	Duplicates        []model.Transaction
	RowErrors         []ingest.RowError
	Imported          int
	SkippedDuplicates int
}

// Import normalizes and persists a batch of raw rows. Unparseable rows are
// reported per row and never abort the batch; duplicate detection runs over
// recent history plus the batch itself.
func (imp *Importer) Import(ctx context.Context, rows []ingest.Row, readerErrs []ingest.RowError, opts Options) (*Summary, error) {
	if opts.Origin == "" {
		return nil, fmt.Errorf("import origin is required")
	}

	summary := &Summary{RowErrors: readerErrs}

	candidates := make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		txn, err := normalizeRow(row, opts)
		if err != nil {
			summary.RowErrors = append(summary.RowErrors, ingest.RowError{Line: row.Line, Err: err})
			continue
		}
		candidates = append(candidates, txn)
	}

	history, err := imp.storage.GetHistory(ctx, service.HistoryFilter{
		Origin: opts.Origin,
		Since:  time.Now().Add(-dedup.HistoryWindow),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load history for duplicate detection: %w", err)
	}

	detector := dedup.NewDetector(history)
	result := detector.Partition(candidates)
	summary.Duplicates = result.Duplicates
	summary.SkippedDuplicates = len(result.Duplicates)

	for _, dup := range result.Duplicates {
		slog.Debug("Skipping duplicate transaction",
			"description", dup.Description,
			"duplicate_of", dup.PotentialDuplicateID)
	}

	if len(result.ToImport) > 0 {
		if err := imp.storage.SaveTransactions(ctx, result.ToImport); err != nil {
			return nil, fmt.Errorf("failed to save transactions: %w", err)
		}
	}

	summary.Transactions = result.ToImport
	summary.Imported = len(result.ToImport)

	slog.Info("Import complete",
		"origin", opts.Origin,
		"bank", opts.Bank,
		"imported", summary.Imported,
		"skipped_duplicates", summary.SkippedDuplicates,
		"row_errors", len(summary.RowErrors))

	return summary, nil
}

// normalizeRow converts one raw row into a pending transaction candidate.
func normalizeRow(row ingest.Row, opts Options) (model.Transaction, error) {
	date, err := normalize.Date(row.Date)
	if err != nil {
		return model.Transaction{}, err
	}

	txn := model.Transaction{
		ID:           uuid.New().String(),
		Date:         date,
		Description:  row.Description,
		Amount:       normalize.Amount(row.Amount),
		Origin:       opts.Origin,
		Bank:         opts.Bank,
		Status:       model.StatusPending,
		ReviewStatus: model.ReviewPending,
		Flagged:      true,
		CreatedAt:    time.Now().UTC(),
	}

	if row.Balance != "" {
		balance := normalize.Amount(row.Balance)
		txn.Balance = &balance
	}

	return txn, nil
}
