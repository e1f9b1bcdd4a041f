package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	generativelanguage "google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"

	"github.com/stepwise-app/stepwise/internal/version"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	// APIKey is the Google AI Studio key. If empty, uses GEMINI_API_KEY env var.
	APIKey string
	Model  string
	// Endpoint overrides the API endpoint. Used by tests.
	Endpoint string
}

// GeminiClient generates text with the Gemini generateContent endpoint.
type GeminiClient struct {
	svc     *generativelanguage.Service
	model   string
	tracker *TokenTracker
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey), option.WithUserAgent(version.UserAgent())}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := generativelanguage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini service: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{svc: svc, model: model, tracker: NewTokenTracker()}, nil
}

// Model returns the configured model name.
func (g *GeminiClient) Model() string { return g.model }

// Tracker returns the token tracker for this client.
func (g *GeminiClient) Tracker() *TokenTracker { return g.tracker }

// Generate executes a prompt and returns the text of the first candidate.
// Failures come back as *ProviderError.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := &generativelanguage.GenerateContentRequest{
		SystemInstruction: &generativelanguage.Content{
			Parts: []*generativelanguage.Part{{Text: systemPrompt}},
		},
		Contents: []*generativelanguage.Content{{
			Role:  "user",
			Parts: []*generativelanguage.Part{{Text: prompt}},
		}},
		GenerationConfig: &generativelanguage.GenerationConfig{
			ResponseMimeType: "application/json",
		},
	}

	resp, err := g.svc.Models.GenerateContent(modelResource(g.model), req).Context(ctx).Do()
	if err != nil {
		return "", wrapGoogleError(err)
	}
	if resp.UsageMetadata != nil {
		g.tracker.Add(resp.UsageMetadata.PromptTokenCount, resp.UsageMetadata.CandidatesTokenCount)
	}

	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
	}
	return "", &ProviderError{Provider: "gemini", Err: errors.New("response had no text candidates")}
}

func modelResource(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}
