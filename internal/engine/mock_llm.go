package engine

import (
	"context"
	"sync"

	"github.com/escudo-app/escudo/internal/llm"
)

// MockClassifier is a test double for the remote AI capability.
type MockClassifier struct {
	ClassifyFunc func(ctx context.Context, req llm.Request) (llm.Suggestion, error)
	Requests     []llm.Request
	Configured   bool
	mu           sync.Mutex
}

// IsConfigured reports the configured flag.
func (m *MockClassifier) IsConfigured() bool {
	return m.Configured
}

// Classify records the request and delegates to ClassifyFunc.
func (m *MockClassifier) Classify(ctx context.Context, req llm.Request) (llm.Suggestion, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, req)
	}
	return llm.Suggestion{}, nil
}
