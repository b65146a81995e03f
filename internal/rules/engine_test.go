package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escudo-app/escudo/internal/model"
)

func TestApply(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	defaultRule := model.Rule{
		ID:            1,
		Keyword:       "continente",
		MajorCategory: "Custos Fixos",
		Category:      "Alimentação",
		IsDefault:     true,
		CreatedAt:     base,
	}

	tests := []struct {
		name        string
		description string
		rules       []model.Rule
		wantRuleID  int64
		wantNil     bool
	}{
		{
			name:        "case insensitive containment",
			description: "COMPRA CONTINENTE FARO",
			rules:       []model.Rule{defaultRule},
			wantRuleID:  1,
		},
		{
			name:        "no keyword present",
			description: "FARMACIA HOLON",
			rules:       []model.Rule{defaultRule},
			wantNil:     true,
		},
		{
			name:        "custom rule beats default for same keyword",
			description: "CONTINENTE ONLINE",
			rules: []model.Rule{
				defaultRule,
				{ID: 10, Keyword: "continente", MajorCategory: "Custos Variáveis", Category: "Compras", CreatedAt: base.AddDate(0, 1, 0)},
			},
			wantRuleID: 10,
		},
		{
			name:        "newest custom rule wins",
			description: "UBER EATS LISBOA",
			rules: []model.Rule{
				{ID: 10, Keyword: "uber", MajorCategory: "Custos Fixos", Category: "Transportes", CreatedAt: base},
				{ID: 11, Keyword: "uber eats", MajorCategory: "Custos Variáveis", Category: "Lazer", CreatedAt: base.AddDate(0, 2, 0)},
			},
			wantRuleID: 11,
		},
		{
			name:        "created-at tie broken by higher id",
			description: "UBER TRIP",
			rules: []model.Rule{
				{ID: 10, Keyword: "uber", MajorCategory: "A", Category: "B", CreatedAt: base},
				{ID: 12, Keyword: "uber", MajorCategory: "C", Category: "D", CreatedAt: base},
			},
			wantRuleID: 12,
		},
		{
			name:        "tombstoned rule never matches",
			description: "CONTINENTE FARO",
			rules: []model.Rule{
				func() model.Rule {
					r := defaultRule
					deleted := base.AddDate(0, 3, 0)
					r.DeletedAt = &deleted
					return r
				}(),
			},
			wantNil: true,
		},
		{
			name:        "regex rule matches pattern",
			description: "MBWAY P2P 912345678",
			rules: []model.Rule{
				{ID: 20, Keyword: `mbway p2p \d+`, MajorCategory: "Custos Variáveis", Category: "Transferências", IsRegex: true, CreatedAt: base},
			},
			wantRuleID: 20,
		},
		{
			name:        "invalid regex is skipped not fatal",
			description: "CONTINENTE FARO",
			rules: []model.Rule{
				{ID: 21, Keyword: `[invalid`, MajorCategory: "X", Category: "Y", IsRegex: true, CreatedAt: base.AddDate(0, 1, 0)},
				defaultRule,
			},
			wantRuleID: 1,
		},
		{
			name:        "no rules at all",
			description: "CONTINENTE FARO",
			rules:       nil,
			wantNil:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.description, tt.rules)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantRuleID, got.ID)
		})
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	activeRules := []model.Rule{
		{ID: 3, Keyword: "galp", MajorCategory: "A", Category: "B", IsDefault: true, CreatedAt: base},
		{ID: 7, Keyword: "galp frota", MajorCategory: "C", Category: "D", CreatedAt: base},
		{ID: 9, Keyword: "frota", MajorCategory: "E", Category: "F", CreatedAt: base},
	}

	first := Apply("GALP FROTA EMPRESAS", activeRules)
	require.NotNil(t, first)
	for i := 0; i < 50; i++ {
		got := Apply("GALP FROTA EMPRESAS", activeRules)
		require.NotNil(t, got)
		assert.Equal(t, first.ID, got.ID)
	}
}
