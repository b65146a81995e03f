package review

import (
	"context"
	"log/slog"

	"github.com/escudo-app/escudo/internal/service"
)

// BulkDelete soft-deletes every listed transaction, attempting each one even
// when earlier items fail. The aggregate result reports both successes and
// failures; no error short-circuits the loop.
func BulkDelete(ctx context.Context, storage service.Storage, ids []string) service.BulkResult {
	return bulkApply(ctx, ids, "delete", storage.SoftDeleteTransaction)
}

// BulkApprove approves every listed transaction with the same per-item
// isolation as BulkDelete, recording accept feedback for each.
func BulkApprove(ctx context.Context, storage service.Storage, ids []string) service.BulkResult {
	return bulkApply(ctx, ids, "approve", func(ctx context.Context, id string) error {
		return Approve(ctx, storage, id)
	})
}

// BulkReject rejects every listed transaction with per-item isolation,
// recording reject feedback for each.
func BulkReject(ctx context.Context, storage service.Storage, ids []string) service.BulkResult {
	return bulkApply(ctx, ids, "reject", func(ctx context.Context, id string) error {
		return Reject(ctx, storage, id)
	})
}

func bulkApply(ctx context.Context, ids []string, label string, op func(context.Context, string) error) service.BulkResult {
	result := service.BulkResult{Results: make([]service.ItemResult, 0, len(ids))}

	for _, id := range ids {
		err := op(ctx, id)
		if err != nil {
			slog.Warn("Bulk item failed",
				"operation", label,
				"transaction_id", id,
				"error", err)
		}
		result.Results = append(result.Results, service.ItemResult{ID: id, Err: err})
	}

	return result
}
