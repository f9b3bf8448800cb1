package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/personashop/internal/config"
)

const anthropicVersion = "2023-06-01"

// Anthropic calls the Anthropic messages API.
type Anthropic struct {
	client   *resty.Client
	model    string
	apiKey   string
	endpoint string
}

// NewAnthropic creates an Anthropic provider.
func NewAnthropic(client *resty.Client, cfg config.ProviderConfig) *Anthropic {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	return &Anthropic{
		client:   client,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimRight(baseURL, "/") + "/messages",
	}
}

// Name implements Provider.
func (p *Anthropic) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete implements Provider.
func (p *Anthropic) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	req := anthropicRequest{
		Model:       p.model,
		System:      systemPrompt,
		Messages:    []chatMessage{{Role: "user", Content: userPrompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var resp anthropicResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", p.apiKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(p.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call anthropic API: %w", err)
	}

	if httpResp.IsError() {
		msg := ""
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return "", statusError("anthropic", httpResp, msg)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
