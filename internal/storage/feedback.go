package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/escudo-app/escudo/internal/model"
)

// SaveFeedback appends one suggestion-feedback audit record. Rows are
// insert-only; there is deliberately no update or delete path.
func (s *SQLiteStorage) SaveFeedback(ctx context.Context, feedback *model.SuggestionFeedback) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if feedback == nil {
		return fmt.Errorf("feedback is required")
	}
	if err := validateString(feedback.TransactionID, "transactionID"); err != nil {
		return err
	}

	createdAt := feedback.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `INSERT INTO suggestion_feedback
			(transaction_id, suggested_major, suggested_category, suggested_sub,
			 suggested_tags, suggested_confidence, source, action,
			 final_major, final_category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		feedback.TransactionID, feedback.SuggestedMajor, feedback.SuggestedCategory,
		feedback.SuggestedSub, joinTags(feedback.SuggestedTags), feedback.SuggestedConfidence,
		string(feedback.Source), string(feedback.Action),
		feedback.FinalMajor, feedback.FinalCategory, createdAt)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	if id, idErr := result.LastInsertId(); idErr == nil {
		feedback.ID = id
	}
	feedback.CreatedAt = createdAt

	return nil
}

// GetFeedback returns the audit trail for one transaction, oldest first.
func (s *SQLiteStorage) GetFeedback(ctx context.Context, transactionID string) ([]model.SuggestionFeedback, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
			id, transaction_id, suggested_major, suggested_category, suggested_sub,
			suggested_tags, suggested_confidence, source, action,
			final_major, final_category, created_at
		FROM suggestion_feedback WHERE transaction_id = ? ORDER BY id ASC`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.SuggestionFeedback
	for rows.Next() {
		var (
			fb     model.SuggestionFeedback
			tags   string
			source string
			action string
		)
		if err := rows.Scan(&fb.ID, &fb.TransactionID, &fb.SuggestedMajor,
			&fb.SuggestedCategory, &fb.SuggestedSub, &tags, &fb.SuggestedConfidence,
			&source, &action, &fb.FinalMajor, &fb.FinalCategory, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		fb.SuggestedTags = splitTags(tags)
		fb.Source = model.CategorySource(source)
		fb.Action = model.FeedbackAction(action)
		records = append(records, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback: %w", err)
	}

	return records, nil
}
