// Package rules implements the deterministic keyword-to-category engine,
// the first layer of the categorization pipeline.
package rules

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/escudo-app/escudo/internal/common"
	"github.com/escudo-app/escudo/internal/model"
)

// Apply returns the first rule whose keyword appears in the description,
// or nil when no active rule matches.
//
// Matching is case-insensitive containment. Priority is deterministic:
// custom rules are tried newest-created first, then default rules in their
// seeded order. Tombstoned rules never match.
func Apply(description string, activeRules []model.Rule) *model.Rule {
	desc := strings.ToLower(description)

	for _, rule := range orderRules(activeRules) {
		if !rule.IsActive() {
			continue
		}
		if matches(desc, rule) {
			matched := rule
			return &matched
		}
	}

	return nil
}

func matches(lowerDesc string, rule model.Rule) bool {
	if rule.IsRegex {
		ok, err := common.MatchRegex(strings.ToLower(rule.Keyword), lowerDesc)
		if err != nil {
			slog.Warn("Skipping rule with invalid regex keyword",
				"rule_id", rule.ID,
				"keyword", rule.Keyword,
				"error", err)
			return false
		}
		return ok
	}
	return strings.Contains(lowerDesc, strings.ToLower(rule.Keyword))
}

// orderRules fixes the evaluation order: custom rules newest first (ties
// broken by higher ID), then default rules by ascending ID.
func orderRules(rs []model.Rule) []model.Rule {
	ordered := make([]model.Rule, len(rs))
	copy(ordered, rs)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.IsDefault != b.IsDefault {
			return !a.IsDefault
		}
		if a.IsDefault {
			return a.ID < b.ID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	return ordered
}
