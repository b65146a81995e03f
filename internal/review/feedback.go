package review

import (
	"context"
	"log/slog"

	"github.com/escudo-app/escudo/internal/model"
	"github.com/escudo-app/escudo/internal/service"
)

// Approve clears the review status and appends an accept record to the
// suggestion audit trail when the transaction carried a suggestion.
func Approve(ctx context.Context, storage service.Storage, id string) error {
	txn, err := storage.GetTransactionByID(ctx, id)
	if err != nil {
		return err
	}

	if err := storage.ApproveTransaction(ctx, id); err != nil {
		return err
	}

	recordFeedback(ctx, storage, txn, model.FeedbackAccept, txn.MajorCategory, txn.Category)
	return nil
}

// Reject marks the transaction rejected and appends a reject record to the
// audit trail when a suggestion was on it.
func Reject(ctx context.Context, storage service.Storage, id string) error {
	txn, err := storage.GetTransactionByID(ctx, id)
	if err != nil {
		return err
	}

	if err := storage.RejectTransaction(ctx, id); err != nil {
		return err
	}

	recordFeedback(ctx, storage, txn, model.FeedbackReject, "", "")
	return nil
}

// recordFeedback appends one audit row built from the suggestion stored on
// the transaction. The review action has already committed, so a failure
// here is logged rather than surfaced.
func recordFeedback(ctx context.Context, storage service.Storage, txn *model.Transaction, action model.FeedbackAction, finalMajor, finalCategory string) {
	if txn.Source == "" {
		return
	}

	feedback := &model.SuggestionFeedback{
		TransactionID:       txn.ID,
		SuggestedMajor:      txn.MajorCategory,
		SuggestedCategory:   txn.Category,
		SuggestedSub:        txn.SubCategory,
		SuggestedTags:       txn.Tags,
		SuggestedConfidence: txn.Confidence,
		Source:              txn.Source,
		Action:              action,
		FinalMajor:          finalMajor,
		FinalCategory:       finalCategory,
	}

	if err := storage.SaveFeedback(ctx, feedback); err != nil {
		slog.Warn("Failed to record suggestion feedback",
			"transaction_id", txn.ID,
			"action", action,
			"error", err)
	}
}
