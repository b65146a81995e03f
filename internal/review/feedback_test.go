package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escudo-app/escudo/internal/model"
	"github.com/escudo-app/escudo/internal/service"
	"github.com/escudo-app/escudo/internal/testutil"
)

func seedSuggested(t *testing.T, store service.Storage, major, category string, confidence float64, source model.CategorySource) string {
	t.Helper()

	id := seedTransactions(t, store, 1)[0]
	require.NoError(t, store.SaveCategorization(context.Background(), &model.Transaction{
		ID:            id,
		MajorCategory: major,
		Category:      category,
		Status:        model.StatusCategorized,
		Source:        source,
		Confidence:    confidence,
	}))
	return id
}

func TestApproveRecordsAcceptFeedback(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	id := seedSuggested(t, store, "Custos Fixos", "Alimentação", 0.9, model.SourceAI)
	require.NoError(t, Approve(ctx, store, id))

	txn, err := store.GetTransactionByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewNone, txn.ReviewStatus)

	records, err := store.GetFeedback(ctx, id)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.FeedbackAccept, records[0].Action)
	assert.Equal(t, model.SourceAI, records[0].Source)
	assert.Equal(t, "Alimentação", records[0].SuggestedCategory)
	assert.Equal(t, "Alimentação", records[0].FinalCategory, "accepting keeps the suggestion as the final category")
	assert.InDelta(t, 0.9, records[0].SuggestedConfidence, 0.0001)
}

func TestRejectRecordsRejectFeedback(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	id := seedSuggested(t, store, "Custos Variáveis", "Lazer", 0.6, model.SourcePattern)
	require.NoError(t, Reject(ctx, store, id))

	txn, err := store.GetTransactionByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewRejected, txn.ReviewStatus)
	assert.True(t, txn.IsDeleted())

	records, err := store.GetFeedback(ctx, id)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.FeedbackReject, records[0].Action)
	assert.Equal(t, "Lazer", records[0].SuggestedCategory)
	assert.Empty(t, records[0].FinalCategory)
}

func TestApproveWithoutSuggestionRecordsNoFeedback(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	id := seedTransactions(t, store, 1)[0]
	require.NoError(t, Approve(ctx, store, id))

	records, err := store.GetFeedback(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, records, "nothing was suggested, so there is nothing to audit")
}

func TestBulkApproveRecordsFeedbackPerItem(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	first := seedSuggested(t, store, "Custos Fixos", "Alimentação", 1.0, model.SourceRule)
	second := seedSuggested(t, store, "Custos Fixos", "Transportes", 0.8, model.SourceAI)

	result := BulkApprove(ctx, store, []string{first, second})
	assert.Equal(t, 2, result.Succeeded())

	for _, id := range []string{first, second} {
		records, err := store.GetFeedback(ctx, id)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	}
}
