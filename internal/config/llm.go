package config

import (
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/escudo-app/escudo/internal/llm"
)

// LoadAIConfig builds the classifier configuration. Precedence:
// 1. Viper configuration (config file or ESCUDO_ env vars)
// 2. The ANTHROPIC_API_KEY environment variable
// 3. Defaults
//
// A missing API key is not an error here; the classifier is constructed
// unconfigured and the pipeline falls back to rules and history matching.
func LoadAIConfig() llm.Config {
	cfg := llm.Config{
		Provider:   viper.GetString("ai.provider"),
		APIKey:     viper.GetString("ai.api_key"),
		Model:      viper.GetString("ai.model"),
		MaxRetries: viper.GetInt("ai.max_retries"),
		RateLimit:  viper.GetInt("ai.rate_limit"),
		MaxTokens:  viper.GetInt("ai.max_tokens"),
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if v := viper.GetDuration("ai.retry_delay"); v > 0 {
		cfg.RetryDelay = v
	}
	if v := viper.GetDuration("ai.cache_ttl"); v > 0 {
		cfg.CacheTTL = v
	} else {
		cfg.CacheTTL = 15 * time.Minute
	}

	return cfg
}
