// Package provider holds the outbound clients for the completion and
// image-generation services, plus mock implementations for local use.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Completer produces a single reply for an assembled prompt.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
	Name() string
}

// GroqConfig configures the Groq-backed completer. Groq speaks the
// OpenAI-compatible chat completions dialect.
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GroqCompleter calls the Groq chat completions endpoint.
type GroqCompleter struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewGroqCompleter(cfg GroqConfig) *GroqCompleter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientCfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &GroqCompleter{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: timeout,
	}
}

func (c *GroqCompleter) Name() string { return "groq" }

func (c *GroqCompleter) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:      0.95,
		TopP:             0.9,
		FrequencyPenalty: 0.35,
		PresencePenalty:  0.25,
		MaxTokens:        600,
	})
	if err != nil {
		return "", fmt.Errorf("groq completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("groq completion: empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
