package review

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escudo-app/escudo/internal/model"
	"github.com/escudo-app/escudo/internal/service"
	"github.com/escudo-app/escudo/internal/storage"
	"github.com/escudo-app/escudo/internal/testutil"
)

func seedTransactions(t *testing.T, store service.Storage, n int) []string {
	t.Helper()

	ids := make([]string, 0, n)
	batch := make([]model.Transaction, 0, n)
	for i := 0; i < n; i++ {
		txn := model.Transaction{
			ID:          uuid.New().String(),
			Date:        time.Now().AddDate(0, 0, -i).UTC(),
			Description: "CONTINENTE FARO",
			Amount:      -10.00 - float64(i),
			Origin:      "joao",
			Bank:        "millennium",
		}
		ids = append(ids, txn.ID)
		batch = append(batch, txn)
	}
	require.NoError(t, store.SaveTransactions(context.Background(), batch))
	return ids
}

func TestBulkDeleteIsolatesFailures(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	ids := seedTransactions(t, store, 2)
	// A missing ID in the middle must not stop the items after it.
	targets := []string{ids[0], "no-such-id", ids[1]}

	result := BulkDelete(ctx, store, targets)

	assert.Equal(t, 2, result.Succeeded())
	assert.Equal(t, 1, result.Failed())
	require.Len(t, result.Results, 3)
	assert.NoError(t, result.Results[0].Err)
	assert.ErrorIs(t, result.Results[1].Err, storage.ErrTransactionNotFound)
	assert.NoError(t, result.Results[2].Err)

	for _, id := range ids {
		txn, err := store.GetTransactionByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, txn.IsDeleted())
	}
}

func TestBulkApprove(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	ids := seedTransactions(t, store, 3)
	result := BulkApprove(ctx, store, ids)

	assert.Equal(t, 3, result.Succeeded())
	for _, id := range ids {
		txn, err := store.GetTransactionByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.ReviewNone, txn.ReviewStatus)
	}
}

func TestBulkRejectTombstones(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	ids := seedTransactions(t, store, 2)
	result := BulkReject(ctx, store, ids)

	assert.Equal(t, 2, result.Succeeded())
	for _, id := range ids {
		txn, err := store.GetTransactionByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.ReviewRejected, txn.ReviewStatus)
		assert.True(t, txn.IsDeleted())
	}
}
