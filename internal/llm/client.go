// Package llm wraps the remote AI classification capability behind a typed
// adapter with rate limiting, caching, and failure classification.
package llm

import (
	"context"

	"github.com/escudo-app/escudo/internal/model"
)

// ClassifierVersion tags classifications so reclassification sweeps can
// target stale results.
const ClassifierVersion = "escudo-ai/1"

// Client defines the interface for remote classification providers.
type Client interface {
	Classify(ctx context.Context, prompt string) (ClassificationResponse, error)
}

// Request carries everything the remote capability needs for one guess.
type Request struct {
	Transaction model.Transaction
	Examples    []Example
	Taxonomy    model.Taxonomy
}

// Example is one recent categorized transaction supplied as context.
type Example struct {
	Description   string
	MajorCategory string
	Category      string
	SubCategory   string
	Amount        float64
}

// ClassificationResponse contains the remote classifier's result.
type ClassificationResponse struct {
	MajorCategory string
	Category      string
	SubCategory   string
	Reasoning     string
	Confidence    float64
}

// Suggestion is a classification result annotated for the orchestrator.
type Suggestion struct {
	MajorCategory string
	Category      string
	SubCategory   string
	Reasoning     string
	Confidence    float64
}
