package model

import "time"

// FeedbackAction is the reviewer's response to a category suggestion.
type FeedbackAction string

const (
	// FeedbackAccept means the suggestion was accepted as-is.
	FeedbackAccept FeedbackAction = "accept"
	// FeedbackReject means the suggestion was rejected.
	FeedbackReject FeedbackAction = "reject"
	// FeedbackOverride means the reviewer substituted a different category.
	FeedbackOverride FeedbackAction = "override"
)

// SuggestionFeedback is an append-only audit record of what the pipeline
// suggested and what the reviewer did with it. Rows are never mutated.
type SuggestionFeedback struct {
	CreatedAt           time.Time
	TransactionID       string
	SuggestedMajor      string
	SuggestedCategory   string
	SuggestedSub        string
	FinalMajor          string
	FinalCategory       string
	SuggestedTags       []string
	Action              FeedbackAction
	Source              CategorySource
	ID                  int64
	SuggestedConfidence float64
}
