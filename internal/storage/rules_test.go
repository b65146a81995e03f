package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escudo-app/escudo/internal/model"
)

func TestMigrateSeedsDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	activeRules, err := store.GetActiveRules(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, activeRules)
	for _, rule := range activeRules {
		assert.True(t, rule.IsDefault)
	}

	taxonomy, err := store.GetTaxonomy(ctx)
	require.NoError(t, err)
	assert.True(t, taxonomy.Contains("Custos Fixos", "Alimentação"))
	assert.True(t, taxonomy.Contains("Rendimentos", "Salário"))
	assert.False(t, taxonomy.Contains("Custos Fixos", "Nope"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	before, err := store.GetActiveRules(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Migrate(ctx))

	after, err := store.GetActiveRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after), "re-running migrations must not duplicate seeds")
}

func TestSaveRuleLowercasesKeyword(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rule := &model.Rule{Keyword: "  WoRtEn ", MajorCategory: "Custos Variáveis", Category: "Compras"}
	require.NoError(t, store.SaveRule(ctx, rule))

	assert.NotZero(t, rule.ID)
	assert.Equal(t, "worten", rule.Keyword)
}

func TestSaveRuleRejectsDuplicateActiveKeyword(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &model.Rule{Keyword: "worten", MajorCategory: "A", Category: "B"}
	require.NoError(t, store.SaveRule(ctx, first))

	dup := &model.Rule{Keyword: "WORTEN", MajorCategory: "C", Category: "D"}
	assert.ErrorIs(t, store.SaveRule(ctx, dup), ErrDuplicateKeyword)
}

func TestDeleteRuleLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rule := &model.Rule{Keyword: "worten", MajorCategory: "A", Category: "B"}
	require.NoError(t, store.SaveRule(ctx, rule))

	require.NoError(t, store.DeleteRule(ctx, rule.ID))

	activeRules, err := store.GetActiveRules(ctx)
	require.NoError(t, err)
	for _, r := range activeRules {
		assert.NotEqual(t, rule.ID, r.ID, "deleted rule must not be active")
	}

	// Deleting again is a no-op, not an error.
	require.NoError(t, store.DeleteRule(ctx, rule.ID))

	// The tombstone frees the keyword for a new rule.
	replacement := &model.Rule{Keyword: "worten", MajorCategory: "C", Category: "D"}
	require.NoError(t, store.SaveRule(ctx, replacement))
}

func TestDeleteDefaultRuleRefused(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	activeRules, err := store.GetActiveRules(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, activeRules)

	err = store.DeleteRule(ctx, activeRules[0].ID)
	assert.ErrorIs(t, err, ErrDefaultRule)
}

func TestDeleteRuleNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.DeleteRule(context.Background(), 99999)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestRestoreRuleKeepsMapping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rule := &model.Rule{Keyword: "worten", MajorCategory: "Custos Variáveis", Category: "Compras", Tags: []string{"eletronica"}}
	require.NoError(t, store.SaveRule(ctx, rule))
	require.NoError(t, store.DeleteRule(ctx, rule.ID))

	require.NoError(t, store.RestoreRule(ctx, rule.ID))

	activeRules, err := store.GetActiveRules(ctx)
	require.NoError(t, err)

	var restored *model.Rule
	for i := range activeRules {
		if activeRules[i].ID == rule.ID {
			restored = &activeRules[i]
		}
	}
	require.NotNil(t, restored)
	assert.Equal(t, "worten", restored.Keyword)
	assert.Equal(t, "Compras", restored.Category)
	assert.Equal(t, []string{"eletronica"}, restored.Tags)
}

func TestRestoreRuleConflictsWithActiveKeyword(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	original := &model.Rule{Keyword: "worten", MajorCategory: "A", Category: "B"}
	require.NoError(t, store.SaveRule(ctx, original))
	require.NoError(t, store.DeleteRule(ctx, original.ID))

	replacement := &model.Rule{Keyword: "worten", MajorCategory: "C", Category: "D"}
	require.NoError(t, store.SaveRule(ctx, replacement))

	err := store.RestoreRule(ctx, original.ID)
	assert.ErrorIs(t, err, ErrDuplicateKeyword)
}
