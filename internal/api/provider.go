package api

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider names accepted by NewGenerator.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// ProviderConfig selects and configures one provider.
type ProviderConfig struct {
	Provider  string
	Anthropic ClientConfig
	Gemini    GeminiConfig
}

// NewGenerator builds the configured provider.
func NewGenerator(ctx context.Context, cfg ProviderConfig) (Generator, error) {
	switch cfg.Provider {
	case "", ProviderAnthropic:
		client, err := NewClient(cfg.Anthropic)
		if err != nil {
			return nil, err
		}
		return NewRunner(client), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg.Gemini)
	default:
		return nil, fmt.Errorf("unknown ai provider %q (want %s or %s)", cfg.Provider, ProviderAnthropic, ProviderGemini)
	}
}

// TrackerOf returns the token tracker behind gen, or nil if it keeps none.
func TrackerOf(gen Generator) *TokenTracker {
	if t, ok := gen.(interface{ Tracker() *TokenTracker }); ok {
		return t.Tracker()
	}
	return nil
}

// AnthropicModel converts a configured model name.
func AnthropicModel(name string) anthropic.Model {
	return anthropic.Model(name)
}

var (
	_ Generator = (*Runner)(nil)
	_ Generator = (*GeminiClient)(nil)
)
