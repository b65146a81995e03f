package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/escudo-app/escudo/internal/common"
	"github.com/escudo-app/escudo/internal/service"
)

// maxExamples caps the number of historical transactions included in a
// classification prompt.
const maxExamples = 100

// Config holds configuration for the AI classifier.
type Config struct {
	Provider   string
	APIKey     string
	Model      string
	MaxRetries int
	RetryDelay time.Duration
	CacheTTL   time.Duration
	RateLimit  int
	MaxTokens  int
}

// Classifier wraps a remote classification client with rate limiting,
// caching, and retry. A Classifier built without credentials is valid but
// reports itself as not configured.
type Classifier struct {
	client      Client
	cache       *suggestionCache
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// NewClassifier creates a new AI-backed classifier. Missing credentials do
// not fail construction; callers branch on IsConfigured instead of treating
// the absent capability as an error.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	var client Client

	if cfg.APIKey != "" {
		var err error
		switch strings.ToLower(cfg.Provider) {
		case "", "anthropic":
			client, err = newAnthropicClient(cfg)
		default:
			return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create AI client: %w", err)
		}
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Classifier{
		client:      client,
		cache:       newSuggestionCache(cfg.CacheTTL),
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}, nil
}

// IsConfigured reports whether the remote capability can be called at all.
// It never performs network I/O.
func (c *Classifier) IsConfigured() bool {
	return c != nil && c.client != nil
}

// Classify asks the remote capability for a category guess. Failures are
// typed: common.ErrNotConfigured, common.ErrRateLimit, or
// common.ErrTransient.
func (c *Classifier) Classify(ctx context.Context, req Request) (Suggestion, error) {
	if !c.IsConfigured() {
		return Suggestion{}, common.ErrNotConfigured
	}

	key := req.Transaction.Fingerprint()
	if suggestion, found := c.cache.get(key); found {
		c.logger.Debug("cache hit for transaction",
			"transaction_id", req.Transaction.ID,
			"description", req.Transaction.Description)
		return suggestion, nil
	}

	if len(req.Examples) > maxExamples {
		req.Examples = req.Examples[:maxExamples]
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		return Suggestion{}, err
	}

	prompt := buildPrompt(req)

	// Rate-limit and configuration failures surface immediately so the
	// caller can pick a fallback path; only transient failures retry here.
	var resp ClassificationResponse
	err := common.WithRetry(ctx, func() error {
		var classifyErr error
		resp, classifyErr = c.client.Classify(ctx, prompt)
		if classifyErr != nil {
			return &common.RetryableError{
				Err:       classifyErr,
				Retryable: errors.Is(classifyErr, common.ErrTransient),
			}
		}
		return nil
	}, c.retryOpts)
	if err != nil {
		return Suggestion{}, err
	}

	suggestion := Suggestion{
		MajorCategory: resp.MajorCategory,
		Category:      resp.Category,
		SubCategory:   resp.SubCategory,
		Reasoning:     resp.Reasoning,
		Confidence:    clampConfidence(resp.Confidence),
	}
	c.cache.set(key, suggestion)

	c.logger.Info("transaction classified",
		"transaction_id", req.Transaction.ID,
		"major_category", suggestion.MajorCategory,
		"category", suggestion.Category,
		"confidence", suggestion.Confidence)

	return suggestion, nil
}

// Close releases the limiter and cache goroutines.
func (c *Classifier) Close() {
	c.rateLimiter.close()
	c.cache.close()
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
