package config

import (
	"fmt"
	"time"
)

// CompletionConfig selects and configures the text-generation provider.
// Only the block named by Provider is used at runtime.
type CompletionConfig struct {
	Provider    string         `mapstructure:"provider"` // "openai", "anthropic", "ollama"
	Timeout     time.Duration  `mapstructure:"timeout"`
	Temperature float32        `mapstructure:"temperature"`
	OpenAI      ProviderConfig `mapstructure:"openai"`
	Anthropic   ProviderConfig `mapstructure:"anthropic"`
	Ollama      ProviderConfig `mapstructure:"ollama"`
	Breaker     BreakerConfig  `mapstructure:"breaker"`
}

// ProviderConfig defines connection settings for a single provider.
type ProviderConfig struct {
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// BreakerConfig tunes the circuit breaker placed in front of the provider.
type BreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	OpenTimeout  time.Duration `mapstructure:"open_timeout"`
}

// Active returns the settings of the selected provider.
func (c *CompletionConfig) Active() ProviderConfig {
	switch c.Provider {
	case "openai":
		return c.OpenAI
	case "anthropic":
		return c.Anthropic
	default:
		return c.Ollama
	}
}

// Validate checks that the selected provider is known and usable.
// Returns an error describing the first validation failure, or nil if valid.
func (c *CompletionConfig) Validate() error {
	switch c.Provider {
	case "openai", "anthropic":
		if c.Active().APIKey == "" {
			return fmt.Errorf("completion %q: api_key is required", c.Provider)
		}
	case "ollama":
		// Local provider, no credentials
	default:
		return fmt.Errorf("completion: unknown provider %q", c.Provider)
	}
	if c.Active().Model == "" {
		return fmt.Errorf("completion %q: model is required", c.Provider)
	}
	if c.Breaker.Enabled && (c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1) {
		return fmt.Errorf("completion breaker: failure_ratio must be in (0, 1]")
	}
	return nil
}
