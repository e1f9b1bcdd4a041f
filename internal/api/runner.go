package api

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// systemPrompt keeps every provider answering in machine-readable form.
const systemPrompt = "You are a planning assistant. Always answer with the exact JSON shape requested and no other text."

// Runner provides simple text-in/text-out Claude API calls.
type Runner struct {
	client    *Client
	maxTokens int64
}

// NewRunner creates a new API runner.
func NewRunner(client *Client) *Runner {
	return &Runner{client: client, maxTokens: 2048}
}

// Tracker returns the token tracker of the underlying client.
func (r *Runner) Tracker() *TokenTracker {
	return r.client.Tracker()
}

// Generate executes a prompt and returns the concatenated text blocks.
// Failures come back as *ProviderError.
func (r *Runner) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := r.client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
		Model:     r.client.Model(),
		MaxTokens: r.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", wrapAnthropicError(err)
	}

	r.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}

	return result.String(), nil
}
