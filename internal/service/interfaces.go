// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/escudo-app/escudo/internal/model"
)

// HistoryFilter bounds historical transaction queries.
type HistoryFilter struct {
	Origin string
	Since  time.Time
	Limit  int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetHistory(ctx context.Context, filter HistoryFilter) ([]model.Transaction, error)
	GetCategorizedHistory(ctx context.Context, filter HistoryFilter) ([]model.Transaction, error)
	GetPendingTransactions(ctx context.Context, limit int) ([]model.Transaction, error)
	SaveCategorization(ctx context.Context, txn *model.Transaction) error
	ApproveTransaction(ctx context.Context, id string) error
	RejectTransaction(ctx context.Context, id string) error
	RestoreTransaction(ctx context.Context, id string) error
	SoftDeleteTransaction(ctx context.Context, id string) error

	// Rule operations
	GetActiveRules(ctx context.Context) ([]model.Rule, error)
	SaveRule(ctx context.Context, rule *model.Rule) error
	DeleteRule(ctx context.Context, id int64) error
	RestoreRule(ctx context.Context, id int64) error

	// Taxonomy operations
	GetTaxonomy(ctx context.Context) (model.Taxonomy, error)

	// Suggestion feedback (append-only)
	SaveFeedback(ctx context.Context, feedback *model.SuggestionFeedback) error
	GetFeedback(ctx context.Context, transactionID string) ([]model.SuggestionFeedback, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// ItemResult records the outcome of one item in a bulk operation.
type ItemResult struct {
	Err error
	ID  string
}

// BulkResult aggregates per-item outcomes of a bulk operation. Failures are
// isolated: one failing item never aborts the rest.
type BulkResult struct {
	Results []ItemResult
}

// Succeeded returns the count of successful items.
func (r *BulkResult) Succeeded() int {
	n := 0
	for _, item := range r.Results {
		if item.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the count of failed items.
func (r *BulkResult) Failed() int {
	return len(r.Results) - r.Succeeded()
}
