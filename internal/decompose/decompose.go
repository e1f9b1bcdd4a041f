// Package decompose asks an AI model to split a task into estimated subtasks.
package decompose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stepwise-app/stepwise/internal/estimate"
	"github.com/stepwise-app/stepwise/pkg/models"
)

// Generator is the outbound text-generation call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Bounds describes the accepted minute range for one kind of request.
type Bounds struct {
	Min      int
	Max      int
	Fallback float64
}

var (
	// AnalyzeBounds applies to first-level suggestions.
	AnalyzeBounds = Bounds{Min: estimate.MinMinutes, Max: estimate.MaxAnalyzeMinutes, Fallback: estimate.DefaultAnalyzeMinutes}
	// DecomposeBounds applies to re-decomposition suggestions.
	DecomposeBounds = Bounds{Min: estimate.MinMinutes, Max: estimate.MaxDecomposeMinutes, Fallback: estimate.DefaultDecomposeMinutes}
)

// rawSuggestion is the loosely typed JSON shape the model returns.
type rawSuggestion struct {
	Title            any `json:"title"`
	Difficulty       any `json:"difficulty"`
	EstimatedMinutes any `json:"estimated_minutes"`
}

// Requester wraps a Generator with prompting, parsing and error mapping.
// It never touches the editing tree.
type Requester struct {
	gen     Generator
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Requester.
type Option func(*Requester)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Requester) { r.logger = l }
}

// WithTimeout bounds every outbound call.
func WithTimeout(d time.Duration) Option {
	return func(r *Requester) { r.timeout = d }
}

// New creates a Requester around gen.
func New(gen Generator, opts ...Option) *Requester {
	r := &Requester{gen: gen, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Analyze proposes the first level of subtasks for a task title.
func (r *Requester) Analyze(ctx context.Context, title string, profile *models.Profile, hints models.Hints) ([]models.Suggestion, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, models.ErrEmptyTitle
	}
	prompt := buildAnalyzePrompt(title, profile, hints, AnalyzeBounds.Max)
	return r.request(ctx, "analyze", prompt, AnalyzeBounds)
}

// Decompose proposes smaller steps for one subtask of taskTitle.
func (r *Requester) Decompose(ctx context.Context, parentTitle, taskTitle string, profile *models.Profile) ([]models.Suggestion, error) {
	parentTitle = strings.TrimSpace(parentTitle)
	if parentTitle == "" {
		return nil, models.ErrEmptyTitle
	}
	prompt := buildDecomposePrompt(parentTitle, strings.TrimSpace(taskTitle), profile, DecomposeBounds.Max)
	return r.request(ctx, "decompose", prompt, DecomposeBounds)
}

func (r *Requester) request(ctx context.Context, op, prompt string, bounds Bounds) ([]models.Suggestion, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		mapped := classify(err)
		var de *Error
		if errors.As(mapped, &de) {
			r.logger.Warn("ai request failed", "op", op, "kind", de.Kind, "detail", de.Detail, "elapsed", time.Since(start))
		}
		return nil, mapped
	}

	suggestions, err := ParseSuggestions(text, bounds)
	if err != nil {
		r.logger.Warn("ai response unreadable", "op", op, "error", err, "chars", len(text))
		return nil, malformed(err)
	}

	r.logger.Debug("ai request done", "op", op, "suggestions", len(suggestions), "elapsed", time.Since(start))
	return suggestions, nil
}

// stripFences removes markdown code fences the model sometimes adds.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ParseSuggestions extracts and sanitizes the suggestion array from a model response.
// Every returned suggestion has a non-empty title, a valid difficulty and
// minutes inside bounds.
func ParseSuggestions(response string, bounds Bounds) ([]models.Suggestion, error) {
	cleaned := stripFences(response)
	jsonStart := strings.Index(cleaned, "[")
	jsonEnd := strings.LastIndex(cleaned, "]")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("no JSON array found in response (got %d chars): %q", len(response), truncate(response, 80))
	}

	var raw []rawSuggestion
	if err := json.Unmarshal([]byte(cleaned[jsonStart:jsonEnd+1]), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("empty suggestion list returned")
	}

	out := make([]models.Suggestion, 0, len(raw))
	for _, item := range raw {
		title := strings.TrimSpace(stringify(item.Title))
		if title == "" {
			continue
		}
		difficulty, _ := item.Difficulty.(string)
		minutes := estimate.MinutesOrDefault(item.EstimatedMinutes, bounds.Fallback)
		out = append(out, models.Suggestion{
			Title:            title,
			Difficulty:       estimate.NormalizeDifficulty(difficulty),
			EstimatedMinutes: estimate.ClampMinutes(minutes, bounds.Min, bounds.Max),
		})
	}
	if len(out) == 0 {
		return nil, errors.New("no usable suggestions in response")
	}
	return out, nil
}

// stringify renders a loosely typed title.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
