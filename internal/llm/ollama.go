package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/personashop/internal/config"
)

// Ollama calls a local Ollama server's chat endpoint.
type Ollama struct {
	client   *resty.Client
	model    string
	endpoint string
}

// NewOllama creates an Ollama provider.
func NewOllama(client *resty.Client, cfg config.ProviderConfig) *Ollama {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		client:   client,
		model:    cfg.Model,
		endpoint: strings.TrimRight(baseURL, "/") + "/api/chat",
	}
}

// Name implements Provider.
func (p *Ollama) Name() string { return "ollama" }

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error,omitempty"`
}

// Complete implements Provider.
func (p *Ollama) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	req := ollamaRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Options: ollamaOptions{Temperature: temperature, NumPredict: maxTokens},
	}

	var resp ollamaResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(p.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call ollama API: %w", err)
	}
	if httpResp.IsError() {
		return "", statusError("ollama", httpResp, resp.Error)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama API error: %s", resp.Error)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Message.Content, nil
}
