package advisor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.1-8b-instant"
	DefaultTimeout = 30 * time.Second

	temperature = 0.7
)

// Completer sends one prompt to a language model and returns its text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *applog.Logger
}

func NewOpenAIClient(cfg ClientConfig, logger *applog.Logger) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.WithComponent(applog.ComponentAdvisor),
	}
}

// Complete fails with core.ErrUpstream for transport errors, non-2xx
// responses and empty completions. Details stay in the server log.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "AI completion failed",
			applog.FieldError, err, "model", c.model, "duration_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: completion request failed", core.ErrUpstream)
	}
	if len(resp.Choices) == 0 {
		c.logger.ErrorContext(ctx, "AI completion returned no choices", "model", c.model, "response_id", resp.ID)
		return "", fmt.Errorf("%w: completion returned no choices", core.ErrUpstream)
	}

	c.logger.DebugContext(ctx, "AI completion done",
		"model", c.model, "duration_ms", time.Since(start).Milliseconds(),
		"total_tokens", resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}
