// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// TransactionStatus tracks where a transaction sits in the categorization lifecycle.
type TransactionStatus string

const (
	// StatusPending marks a transaction that has been imported but not categorized.
	StatusPending TransactionStatus = "pending"
	// StatusCategorized marks a transaction with an assigned category.
	StatusCategorized TransactionStatus = "categorized"
)

// ReviewStatus tracks the human review state of a transaction.
type ReviewStatus string

const (
	// ReviewNone means no review is outstanding.
	ReviewNone ReviewStatus = ""
	// ReviewPending means the transaction awaits human review.
	ReviewPending ReviewStatus = "pending_review"
	// ReviewRejected means a reviewer rejected the transaction.
	ReviewRejected ReviewStatus = "rejected"
)

// CategorySource indicates which layer of the pipeline assigned a category.
type CategorySource string

const (
	// SourceRule means a deterministic keyword rule assigned the category.
	SourceRule CategorySource = "rule"
	// SourcePattern means a historical similarity match assigned the category.
	SourcePattern CategorySource = "pattern"
	// SourceAI means the remote classifier assigned the category.
	SourceAI CategorySource = "ai"
)

// Transaction is the central entity: a single imported bank or investment movement.
// The raw fields are the source of truth and are never mutated after import.
type Transaction struct {
	Date                 time.Time
	CreatedAt            time.Time
	DeletedAt            *time.Time
	ID                   string
	Description          string
	Origin               string // household/person scope, e.g. "personal" or "joint"
	Bank                 string // source institution label
	MajorCategory        string
	Category             string
	SubCategory          string
	Reasoning            string
	ClassifierVersion    string
	PotentialDuplicateID string
	Tags                 []string
	Status               TransactionStatus
	ReviewStatus         ReviewStatus
	Source               CategorySource
	Amount               float64 // signed; positive = income, negative = expense
	Balance              *float64
	Confidence           float64
	Flagged              bool
}

// Fingerprint derives the deterministic identity key used for exact-duplicate
// detection. Two transactions with equal fingerprints are the same movement.
// Equality is intentionally strict: any byte difference in the five inputs
// produces a different key.
func (t *Transaction) Fingerprint() string {
	data := fmt.Sprintf("%s|%s|%.2f|%s|%s",
		t.Date.UTC().Format(time.RFC3339),
		t.Description,
		t.Amount,
		t.Origin,
		t.Bank)
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum)
}

// IsCategorized reports whether the transaction carries a usable category.
// SubCategory and tags are optional refinements and do not affect this.
func (t *Transaction) IsCategorized() bool {
	return t.MajorCategory != "" && t.Category != ""
}

// IsDeleted reports whether the transaction has been soft-deleted.
func (t *Transaction) IsDeleted() bool {
	return t.DeletedAt != nil
}
