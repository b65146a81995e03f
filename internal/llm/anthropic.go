package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/escudo-app/escudo/internal/common"
)

const defaultModel = "claude-sonnet-4-5-20250929"

// anthropicClient implements the Client interface on the Anthropic API.
type anthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// newAnthropicClient creates a new Anthropic API client.
func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key is required", common.ErrNotConfigured)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 512
	}

	return &anthropicClient{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Classify sends a classification prompt and parses the JSON reply.
func (c *anthropicClient) Classify(ctx context.Context, prompt string) (ClassificationResponse, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: "You are a financial transaction classifier. Respond only with the JSON object requested, no prose."},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return ClassificationResponse{}, classifyAPIError(err)
	}

	if len(message.Content) == 0 {
		return ClassificationResponse{}, fmt.Errorf("%w: empty response", common.ErrTransient)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return parseClassification(text.String())
}

// classifyAPIError maps provider errors onto the adapter's failure taxonomy.
func classifyAPIError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", common.ErrRateLimit, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", common.ErrNotConfigured, err)
		}
	}
	return fmt.Errorf("%w: %v", common.ErrTransient, err)
}

// parseClassification extracts the category guess from the LLM response.
// The model may wrap JSON in markdown fences, so the outermost braces are
// located first.
func parseClassification(content string) (ClassificationResponse, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return ClassificationResponse{}, fmt.Errorf("%w: no JSON found in response", common.ErrTransient)
	}

	var parsed struct {
		MajorCategory string  `json:"majorCategory"`
		Category      string  `json:"category"`
		SubCategory   string  `json:"subCategory,omitempty"`
		Reasoning     string  `json:"reasoning"`
		Confidence    float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return ClassificationResponse{}, fmt.Errorf("%w: malformed JSON response: %v", common.ErrTransient, err)
	}

	if parsed.MajorCategory == "" || parsed.Category == "" {
		return ClassificationResponse{}, fmt.Errorf("%w: response missing category", common.ErrTransient)
	}

	return ClassificationResponse{
		MajorCategory: parsed.MajorCategory,
		Category:      parsed.Category,
		SubCategory:   parsed.SubCategory,
		Reasoning:     parsed.Reasoning,
		Confidence:    parsed.Confidence,
	}, nil
}
