package model

import "time"

// Rule maps a description keyword to a category. Rules are the first,
// fully deterministic layer of categorization.
type Rule struct {
	CreatedAt     time.Time
	DeletedAt     *time.Time
	Keyword       string // matched case-insensitively anywhere in the description
	MajorCategory string
	Category      string
	Tags          []string
	ID            int64
	IsDefault     bool // seeded rules cannot be deleted
	IsRegex       bool // keyword is a regular expression instead of a literal
}

// IsActive reports whether the rule participates in matching.
func (r *Rule) IsActive() bool {
	return r.DeletedAt == nil
}
