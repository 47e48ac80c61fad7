// Package anthropic implements the textgen port using the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/finsight/reportd/internal/config"
)

// Client implements textgen.Generator against the Anthropic API.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewClient creates a generator from the given Anthropic config.
func NewClient(cfg config.Anthropic) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required (set ANTHROPIC_API_KEY or anthropic.api_key)")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	return &Client{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}, nil
}

// Generate runs one Messages call for the prompt under the configured
// timeout. An API error, a timeout, and empty content all return an error;
// the caller decides whether to retry.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages call: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}

	if strings.TrimSpace(out.String()) == "" {
		return "", fmt.Errorf("anthropic returned empty content")
	}

	slog.Debug("generation completed",
		"model", c.model,
		"prompt_len", len(prompt),
		"response_len", out.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out.String(), nil
}
