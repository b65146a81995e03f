// Package engine orchestrates the layered categorization pipeline: keyword
// rules first, historical similarity second, the remote AI classifier last.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/escudo-app/escudo/internal/common"
	"github.com/escudo-app/escudo/internal/llm"
	"github.com/escudo-app/escudo/internal/match"
	"github.com/escudo-app/escudo/internal/model"
	"github.com/escudo-app/escudo/internal/rules"
	"github.com/escudo-app/escudo/internal/service"
)

// Classifier defines the contract for the remote AI capability.
type Classifier interface {
	IsConfigured() bool
	Classify(ctx context.Context, req llm.Request) (llm.Suggestion, error)
}

// Config holds configuration options for the orchestrator.
type Config struct {
	BatchLimit          int
	MaxConcurrent       int
	ConfidenceThreshold float64
	HistoryWindow       time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BatchLimit:          50,
		MaxConcurrent:       4,
		ConfidenceThreshold: 0.7,
		HistoryWindow:       90 * 24 * time.Hour,
	}
}

// Orchestrator assigns categories to pending transactions.
type Orchestrator struct {
	storage    service.Storage
	classifier Classifier
	cfg        Config
}

// New creates an orchestrator with the default configuration.
func New(storage service.Storage, classifier Classifier) *Orchestrator {
	return NewWithConfig(storage, classifier, DefaultConfig())
}

// NewWithConfig creates an orchestrator with custom configuration.
func NewWithConfig(storage service.Storage, classifier Classifier, cfg Config) *Orchestrator {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = DefaultConfig().BatchLimit
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfig().ConfidenceThreshold
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultConfig().HistoryWindow
	}
	return &Orchestrator{storage: storage, classifier: classifier, cfg: cfg}
}

// OutcomeKind describes what happened to one transaction in a batch.
type OutcomeKind string

const (
	// OutcomeCategorized means a category was assigned and saved.
	OutcomeCategorized OutcomeKind = "categorized"
	// OutcomeSkipped means the transaction was not touched.
	OutcomeSkipped OutcomeKind = "skipped"
	// OutcomeError means categorization failed; the transaction stays pending.
	OutcomeError OutcomeKind = "error"
)

// Outcome records the per-transaction result of a batch run.
type Outcome struct {
	Err           error
	TransactionID string
	Reason        string
	Source        model.CategorySource
	Kind          OutcomeKind
	Confidence    float64
	Flagged       bool
}

// Stats summarizes a batch run.
type Stats struct {
	Processed int
	ByRule    int
	ByPattern int
	ByAI      int
	Flagged   int
	Skipped   int
	Errors    int
}

// CategorizeBatch categorizes up to BatchLimit pending transactions.
// Rules and similarity run sequentially; AI calls run under a bounded
// concurrency window. Transactions whose AI call fails stay pending and are
// not retried within the batch.
func (o *Orchestrator) CategorizeBatch(ctx context.Context) (Stats, []Outcome, error) {
	activeRules, err := o.storage.GetActiveRules(ctx)
	if err != nil {
		return Stats{}, nil, fmt.Errorf("failed to load rules: %w", err)
	}

	taxonomy, err := o.storage.GetTaxonomy(ctx)
	if err != nil {
		return Stats{}, nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}

	pending, err := o.storage.GetPendingTransactions(ctx, o.cfg.BatchLimit)
	if err != nil {
		return Stats{}, nil, fmt.Errorf("failed to load pending transactions: %w", err)
	}
	if len(pending) == 0 {
		slog.Info("No transactions to categorize")
		return Stats{}, nil, nil
	}

	histories, err := o.loadHistories(ctx, pending)
	if err != nil {
		return Stats{}, nil, err
	}

	outcomes := make([]Outcome, len(pending))
	var aiCandidates []int

	for i := range pending {
		txn := &pending[i]

		if txn.IsCategorized() {
			outcomes[i] = Outcome{
				TransactionID: txn.ID,
				Kind:          OutcomeSkipped,
				Reason:        "Already categorized",
			}
			continue
		}

		if rule := rules.Apply(txn.Description, activeRules); rule != nil {
			outcomes[i] = o.applyRule(ctx, txn, rule)
			continue
		}

		if m := match.FindBestMatch(*txn, histories[txn.Origin]); m != nil {
			outcomes[i] = o.applyPattern(ctx, txn, m)
			continue
		}

		aiCandidates = append(aiCandidates, i)
	}

	o.classifyWithAI(ctx, pending, aiCandidates, histories, taxonomy, outcomes)

	stats := tally(outcomes)
	slog.Info("Categorization batch complete",
		"processed", stats.Processed,
		"by_rule", stats.ByRule,
		"by_pattern", stats.ByPattern,
		"by_ai", stats.ByAI,
		"flagged", stats.Flagged,
		"skipped", stats.Skipped,
		"errors", stats.Errors)

	return stats, outcomes, nil
}

// Reclassify forces a fresh categorization of one transaction, bypassing the
// already-categorized short-circuit. This is the only path that may overwrite
// an existing category, and it is always user-initiated.
func (o *Orchestrator) Reclassify(ctx context.Context, id string) (Outcome, error) {
	txn, err := o.storage.GetTransactionByID(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load transaction: %w", err)
	}
	prior := *txn

	activeRules, err := o.storage.GetActiveRules(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load rules: %w", err)
	}

	var outcome Outcome
	if rule := rules.Apply(txn.Description, activeRules); rule != nil {
		outcome = o.applyRule(ctx, txn, rule)
	} else {
		history, err := o.storage.GetCategorizedHistory(ctx, service.HistoryFilter{
			Origin: txn.Origin,
			Since:  time.Now().Add(-o.cfg.HistoryWindow),
		})
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to load history: %w", err)
		}

		if m := match.FindBestMatch(*txn, history); m != nil {
			outcome = o.applyPattern(ctx, txn, m)
		} else if !o.classifier.IsConfigured() {
			return Outcome{
				TransactionID: txn.ID,
				Kind:          OutcomeSkipped,
				Reason:        "AI classifier not configured",
			}, nil
		} else {
			taxonomy, err := o.storage.GetTaxonomy(ctx)
			if err != nil {
				return Outcome{}, fmt.Errorf("failed to load taxonomy: %w", err)
			}
			outcome = o.applyAI(ctx, txn, history, taxonomy)
		}
	}

	if outcome.Kind == OutcomeCategorized {
		o.recordOverride(ctx, prior, txn)
	}

	return outcome, nil
}

// recordOverride appends an override record to the suggestion audit trail
// when a reclassification replaced an existing category.
func (o *Orchestrator) recordOverride(ctx context.Context, prior model.Transaction, txn *model.Transaction) {
	if !prior.IsCategorized() {
		return
	}

	feedback := &model.SuggestionFeedback{
		TransactionID:       txn.ID,
		SuggestedMajor:      prior.MajorCategory,
		SuggestedCategory:   prior.Category,
		SuggestedSub:        prior.SubCategory,
		SuggestedTags:       prior.Tags,
		SuggestedConfidence: prior.Confidence,
		Source:              prior.Source,
		Action:              model.FeedbackOverride,
		FinalMajor:          txn.MajorCategory,
		FinalCategory:       txn.Category,
	}

	if err := o.storage.SaveFeedback(ctx, feedback); err != nil {
		slog.Warn("Failed to record reclassification feedback",
			"transaction_id", txn.ID,
			"error", err)
	}
}

// loadHistories fetches the bounded categorized history once per origin in
// the batch; it feeds both similarity matching and AI examples.
func (o *Orchestrator) loadHistories(ctx context.Context, pending []model.Transaction) (map[string][]model.Transaction, error) {
	since := time.Now().Add(-o.cfg.HistoryWindow)
	histories := make(map[string][]model.Transaction)

	for i := range pending {
		origin := pending[i].Origin
		if _, ok := histories[origin]; ok {
			continue
		}
		history, err := o.storage.GetCategorizedHistory(ctx, service.HistoryFilter{
			Origin: origin,
			Since:  since,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load history for origin %q: %w", origin, err)
		}
		histories[origin] = history
	}

	return histories, nil
}

func (o *Orchestrator) applyRule(ctx context.Context, txn *model.Transaction, rule *model.Rule) Outcome {
	txn.MajorCategory = rule.MajorCategory
	txn.Category = rule.Category
	txn.SubCategory = ""
	txn.Tags = append(txn.Tags, rule.Tags...)
	txn.Source = model.SourceRule
	txn.Confidence = 1.0
	txn.Reasoning = fmt.Sprintf("Matched rule keyword %q", rule.Keyword)
	txn.Flagged = false
	txn.Status = model.StatusCategorized

	return o.persistOutcome(ctx, txn)
}

func (o *Orchestrator) applyPattern(ctx context.Context, txn *model.Transaction, m *match.Match) Outcome {
	txn.MajorCategory = m.Transaction.MajorCategory
	txn.Category = m.Transaction.Category
	txn.SubCategory = m.Transaction.SubCategory
	txn.Source = model.SourcePattern
	txn.Confidence = m.Score
	txn.Reasoning = fmt.Sprintf("Similar to %q (score %.2f)", m.Transaction.Description, m.Score)
	txn.Flagged = m.Score < o.cfg.ConfidenceThreshold
	txn.Status = model.StatusCategorized

	return o.persistOutcome(ctx, txn)
}

func (o *Orchestrator) applyAI(ctx context.Context, txn *model.Transaction, history []model.Transaction, taxonomy model.Taxonomy) Outcome {
	suggestion, err := o.classifier.Classify(ctx, llm.Request{
		Transaction: *txn,
		Examples:    toExamples(history),
		Taxonomy:    taxonomy,
	})
	if err != nil {
		reason := "AI classification failed"
		if errors.Is(err, common.ErrRateLimit) {
			reason = "AI rate limited"
		} else if errors.Is(err, common.ErrNotConfigured) {
			reason = "AI classifier not configured"
		}
		slog.Warn("AI classification failed",
			"transaction_id", txn.ID,
			"error", err)
		return Outcome{
			TransactionID: txn.ID,
			Kind:          OutcomeError,
			Reason:        reason,
			Err:           err,
		}
	}

	txn.MajorCategory = suggestion.MajorCategory
	txn.Category = suggestion.Category
	txn.SubCategory = suggestion.SubCategory
	txn.Source = model.SourceAI
	txn.Confidence = suggestion.Confidence
	txn.Reasoning = suggestion.Reasoning
	txn.ClassifierVersion = llm.ClassifierVersion
	txn.Flagged = suggestion.Confidence < o.cfg.ConfidenceThreshold
	txn.Status = model.StatusCategorized

	return o.persistOutcome(ctx, txn)
}

// classifyWithAI runs the remote calls for the leftover candidates under a
// bounded concurrency window; unbounded fan-out would trip provider rate
// limits.
func (o *Orchestrator) classifyWithAI(ctx context.Context, pending []model.Transaction, candidates []int, histories map[string][]model.Transaction, taxonomy model.Taxonomy, outcomes []Outcome) {
	if len(candidates) == 0 {
		return
	}

	if !o.classifier.IsConfigured() {
		for _, idx := range candidates {
			outcomes[idx] = Outcome{
				TransactionID: pending[idx].ID,
				Kind:          OutcomeSkipped,
				Reason:        "AI classifier not configured",
			}
		}
		return
	}

	sem := make(chan struct{}, o.cfg.MaxConcurrent)
	var wg sync.WaitGroup

	for _, idx := range candidates {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				outcomes[i] = Outcome{
					TransactionID: pending[i].ID,
					Kind:          OutcomeError,
					Reason:        "canceled",
					Err:           ctx.Err(),
				}
				return
			}

			txn := pending[i]
			outcomes[i] = o.applyAI(ctx, &txn, histories[txn.Origin], taxonomy)
		}(idx)
	}

	wg.Wait()
}

func (o *Orchestrator) persistOutcome(ctx context.Context, txn *model.Transaction) Outcome {
	if err := o.storage.SaveCategorization(ctx, txn); err != nil {
		return Outcome{
			TransactionID: txn.ID,
			Kind:          OutcomeError,
			Reason:        "failed to save categorization",
			Err:           err,
		}
	}

	return Outcome{
		TransactionID: txn.ID,
		Kind:          OutcomeCategorized,
		Source:        txn.Source,
		Confidence:    txn.Confidence,
		Flagged:       txn.Flagged,
	}
}

func toExamples(history []model.Transaction) []llm.Example {
	examples := make([]llm.Example, 0, len(history))
	for _, h := range history {
		examples = append(examples, llm.Example{
			Description:   h.Description,
			MajorCategory: h.MajorCategory,
			Category:      h.Category,
			SubCategory:   h.SubCategory,
			Amount:        h.Amount,
		})
	}
	return examples
}

func tally(outcomes []Outcome) Stats {
	var stats Stats
	for _, out := range outcomes {
		switch out.Kind {
		case OutcomeCategorized:
			stats.Processed++
			switch out.Source {
			case model.SourceRule:
				stats.ByRule++
			case model.SourcePattern:
				stats.ByPattern++
			case model.SourceAI:
				stats.ByAI++
			}
			if out.Flagged {
				stats.Flagged++
			}
		case OutcomeSkipped:
			stats.Skipped++
		case OutcomeError:
			stats.Errors++
		}
	}
	return stats
}
