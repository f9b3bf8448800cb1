// Package llm talks to text-completion providers. Every provider exposes the
// same single operation so callers never depend on which one is configured.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/personashop/internal/config"
)

// Provider generates a completion for a system and user prompt pair.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error)
	// Name is the provider tag stored on generated records.
	Name() string
}

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty completion response")

// NewProvider builds the configured provider, wrapped in a circuit breaker
// when enabled.
// Parameters:
//   - cfg: completion configuration.
// Returns:
//   - Provider: ready-to-use provider.
//   - error: non-nil for an unknown provider name.
func NewProvider(cfg *config.CompletionConfig) (Provider, error) {
	active := cfg.Active()
	client := newRestyClient(cfg.Timeout)

	var p Provider
	switch cfg.Provider {
	case "openai":
		p = NewOpenAI(client, active)
	case "anthropic":
		p = NewAnthropic(client, active)
	case "ollama":
		p = NewOllama(client, active)
	default:
		return nil, fmt.Errorf("unsupported completion provider: %q", cfg.Provider)
	}

	if cfg.Breaker.Enabled {
		p = NewBreaker(p, cfg.Breaker)
	}
	return p, nil
}

func newRestyClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)
	return client
}

// statusError formats a non-2xx response, preferring the provider's message.
func statusError(name string, resp *resty.Response, message string) error {
	if message == "" {
		message = strings.TrimSpace(string(resp.Body()))
	}
	return fmt.Errorf("%s API returned HTTP %d: %s", name, resp.StatusCode(), message)
}
