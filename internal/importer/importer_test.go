package importer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escudo-app/escudo/internal/ingest"
	"github.com/escudo-app/escudo/internal/model"
	"github.com/escudo-app/escudo/internal/testutil"
)

var opts = Options{Origin: "joao", Bank: "millennium"}

func recentDate() string {
	return time.Now().AddDate(0, 0, -3).Format("2006-01-02")
}

func TestImportHappyPath(t *testing.T) {
	store := testutil.SetupTestDB(t)
	imp := New(store)

	rows := []ingest.Row{
		{Line: 2, Date: recentDate(), Description: "CONTINENTE FARO", Amount: "-45,67", Balance: "1.234,56"},
		{Line: 3, Date: recentDate(), Description: "VENCIMENTO MARÇO", Amount: "1500,00"},
	}

	summary, err := imp.Import(context.Background(), rows, nil, opts)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 0, summary.SkippedDuplicates)
	assert.Empty(t, summary.RowErrors)
	require.Len(t, summary.Transactions, 2)

	first := summary.Transactions[0]
	assert.NotEmpty(t, first.ID)
	assert.InDelta(t, -45.67, first.Amount, 0.001)
	require.NotNil(t, first.Balance)
	assert.InDelta(t, 1234.56, *first.Balance, 0.001)
	assert.Equal(t, model.StatusPending, first.Status)
	assert.Equal(t, model.ReviewPending, first.ReviewStatus)
	assert.True(t, first.Flagged)

	pending, err := store.GetPendingTransactions(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestImportIsIdempotent(t *testing.T) {
	store := testutil.SetupTestDB(t)
	imp := New(store)

	rows := []ingest.Row{
		{Line: 2, Date: recentDate(), Description: "STARBUCKS LISBOA", Amount: "-4,50"},
	}

	first, err := imp.Import(context.Background(), rows, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Imported)

	second, err := imp.Import(context.Background(), rows, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 1, second.SkippedDuplicates)

	require.Len(t, second.Duplicates, 1)
	assert.Equal(t, first.Transactions[0].ID, second.Duplicates[0].PotentialDuplicateID,
		"skipped row points back at the transaction it collided with")
}

func TestImportReportsRowErrorsWithoutAborting(t *testing.T) {
	store := testutil.SetupTestDB(t)
	imp := New(store)

	rows := []ingest.Row{
		{Line: 2, Date: "not a date", Description: "BROKEN ROW", Amount: "-1,00"},
		{Line: 3, Date: recentDate(), Description: "GALP COMBUSTIVEIS", Amount: "-60,00"},
	}
	readerErrs := []ingest.RowError{
		{Line: 5, Err: assert.AnError},
	}

	summary, err := imp.Import(context.Background(), rows, readerErrs, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Imported)
	require.Len(t, summary.RowErrors, 2)
	assert.Equal(t, 5, summary.RowErrors[0].Line)
	assert.Equal(t, 2, summary.RowErrors[1].Line)
}

func TestImportSameMovementForTwoOrigins(t *testing.T) {
	store := testutil.SetupTestDB(t)
	imp := New(store)

	rows := []ingest.Row{
		{Line: 2, Date: recentDate(), Description: "RENDA ABRIL", Amount: "-750,00"},
	}

	first, err := imp.Import(context.Background(), rows, nil, Options{Origin: "joao"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Imported)

	second, err := imp.Import(context.Background(), rows, nil, Options{Origin: "maria"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Imported, "origin participates in the fingerprint")
}

func TestImportRequiresOrigin(t *testing.T) {
	store := testutil.SetupTestDB(t)
	imp := New(store)

	_, err := imp.Import(context.Background(), nil, nil, Options{})
	require.Error(t, err)
}

func TestImportMalformedAmountDefaultsToZero(t *testing.T) {
	store := testutil.SetupTestDB(t)
	imp := New(store)

	rows := []ingest.Row{
		{Line: 2, Date: recentDate(), Description: "ESTRANHO", Amount: "??"},
	}

	summary, err := imp.Import(context.Background(), rows, nil, opts)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Imported)
	assert.Zero(t, summary.Transactions[0].Amount)
}
