package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/personashop/internal/config"
)

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client   *resty.Client
	model    string
	apiKey   string
	endpoint string
}

// NewOpenAI creates an OpenAI-compatible provider.
func NewOpenAI(client *resty.Client, cfg config.ProviderConfig) *OpenAI {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAI{
		client:   client,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimRight(baseURL, "/") + "/chat/completions",
	}
}

// Name implements Provider.
func (p *OpenAI) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete implements Provider.
func (p *OpenAI) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	req := openAIRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var resp openAIResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(p.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call openai API: %w", err)
	}

	if httpResp.IsError() {
		msg := ""
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return "", statusError("openai", httpResp, msg)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("openai API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
