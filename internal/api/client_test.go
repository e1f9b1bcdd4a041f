package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestNewClient_WithAPIKey(t *testing.T) {
	cfg := ClientConfig{
		APIKey: "test-key-123",
		Model:  anthropic.ModelClaudeSonnet4_20250514,
	}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client == nil {
		t.Fatal("NewClient returned nil")
	}
	if client.Model() != anthropic.ModelClaudeSonnet4_20250514 {
		t.Errorf("Model = %q, want %q", client.Model(), anthropic.ModelClaudeSonnet4_20250514)
	}
	if client.Tracker() == nil {
		t.Error("Tracker should not be nil")
	}
}

func TestNewClient_WithEnvVar(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-test-key")

	client, err := NewClient(ClientConfig{})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client == nil {
		t.Fatal("NewClient returned nil")
	}
}

func TestNewClient_NoAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewClient(ClientConfig{})
	if err == nil {
		t.Fatal("NewClient should fail without API key")
	}

	expected := "ANTHROPIC_API_KEY environment variable is not set"
	if err.Error() != expected {
		t.Errorf("Error = %q, want %q", err.Error(), expected)
	}
}

func TestNewClient_DefaultModel(t *testing.T) {
	client, err := NewClient(ClientConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.Model() != DefaultAnthropicModel {
		t.Errorf("Default model = %q, want %q", client.Model(), DefaultAnthropicModel)
	}
}

func TestTranslateModelForBedrock(t *testing.T) {
	got := translateModelForBedrock(anthropic.ModelClaudeHaiku4_5_20251001)
	if got != "us.anthropic.claude-haiku-4-5-20251001-v1:0" {
		t.Errorf("translate = %q", got)
	}
	custom := anthropic.Model("us.anthropic.custom-v1:0")
	if got := translateModelForBedrock(custom); got != custom {
		t.Errorf("custom model changed to %q", got)
	}
}

func TestTokenTracker_AddMultiple(t *testing.T) {
	tracker := NewTokenTracker()

	tracker.Add(100, 50)
	tracker.Add(200, 100)
	tracker.Add(50, 25)

	input, output := tracker.Total()
	if input != 350 {
		t.Errorf("Input tokens = %d, want 350", input)
	}
	if output != 175 {
		t.Errorf("Output tokens = %d, want 175", output)
	}
	if tracker.Calls() != 3 {
		t.Errorf("Calls = %d, want 3", tracker.Calls())
	}
}

func TestTokenTracker_LogValue(t *testing.T) {
	tracker := NewTokenTracker()
	tracker.Add(100, 50)
	tracker.Add(20, 5)

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("ai usage", "tokens", tracker)

	got := buf.String()
	for _, want := range []string{"tokens.input=120", "tokens.output=55", "tokens.calls=2"} {
		if !strings.Contains(got, want) {
			t.Errorf("log line %q missing %q", got, want)
		}
	}
}

func TestTrackerOf(t *testing.T) {
	client, err := NewClient(ClientConfig{APIKey: "sk-ant-test"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if got := TrackerOf(NewRunner(client)); got != client.Tracker() {
		t.Error("runner should expose its client's tracker")
	}
	if got := TrackerOf(generatorFunc(nil)); got != nil {
		t.Errorf("TrackerOf(untracked) = %v, want nil", got)
	}
}

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// fakeMessages serves the Anthropic messages endpoint.
func fakeMessages(t *testing.T, status int, header http.Header, body string) (*httptest.Server, *[]string) {
	t.Helper()
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		var req struct {
			Messages []struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(raw, &req); err == nil && len(req.Messages) > 0 && len(req.Messages[0].Content) > 0 {
			prompts = append(prompts, req.Messages[0].Content[0].Text)
		}
		for k, vs := range header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &prompts
}

func TestRunner_Generate(t *testing.T) {
	body := `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-haiku-4-5",
		"content": [{"type": "text", "text": "[{\"title\": \"Outline\"}]"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 12, "output_tokens": 7}
	}`
	srv, prompts := fakeMessages(t, http.StatusOK, nil, body)

	client, err := NewClient(ClientConfig{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	text, err := NewRunner(client).Generate(context.Background(), "Break down: essay")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != `[{"title": "Outline"}]` {
		t.Errorf("text = %q", text)
	}
	if len(*prompts) != 1 || (*prompts)[0] != "Break down: essay" {
		t.Errorf("prompts = %v", *prompts)
	}
	in, out := client.Tracker().Total()
	if in != 12 || out != 7 {
		t.Errorf("tokens = %d/%d, want 12/7", in, out)
	}
}

func TestRunner_RateLimited(t *testing.T) {
	body := `{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`
	srv, _ := fakeMessages(t, http.StatusTooManyRequests, http.Header{"Retry-After": {"7"}}, body)

	client, err := NewClient(ClientConfig{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	_, err = NewRunner(client).Generate(context.Background(), "x")

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if pe.HTTPStatus() != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", pe.HTTPStatus())
	}
	if pe.RetryAfter() != 7*time.Second {
		t.Errorf("retry = %v, want 7s", pe.RetryAfter())
	}
	if pe.Provider != ProviderAnthropic {
		t.Errorf("provider = %q", pe.Provider)
	}
}

func TestRunner_Unauthorized(t *testing.T) {
	body := `{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`
	srv, _ := fakeMessages(t, http.StatusUnauthorized, nil, body)

	client, _ := NewClient(ClientConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := NewRunner(client).Generate(context.Background(), "x")

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if pe.HTTPStatus() != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", pe.HTTPStatus())
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name   string
		header http.Header
		want   time.Duration
	}{
		{"nil", nil, 0},
		{"missing", http.Header{}, 0},
		{"seconds", http.Header{"Retry-After": {"30"}}, 30 * time.Second},
		{"zero", http.Header{"Retry-After": {"0"}}, 0},
		{"milliseconds win", http.Header{"Retry-After-Ms": {"1500"}, "Retry-After": {"30"}}, 1500 * time.Millisecond},
		{"http date", http.Header{"Retry-After": {now.Add(2 * time.Minute).Format(http.TimeFormat)}}, 2 * time.Minute},
		{"past date", http.Header{"Retry-After": {now.Add(-time.Minute).Format(http.TimeFormat)}}, 0},
		{"garbage", http.Header{"Retry-After": {"soon"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.header, now); got != tt.want {
				t.Errorf("parseRetryAfter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapErrors_PassContextThrough(t *testing.T) {
	if err := wrapAnthropicError(context.Canceled); err != context.Canceled {
		t.Errorf("anthropic wrap = %v, want context.Canceled", err)
	}
	if err := wrapGoogleError(context.DeadlineExceeded); err != context.DeadlineExceeded {
		t.Errorf("google wrap = %v, want context.DeadlineExceeded", err)
	}
}

func TestNewGenerator(t *testing.T) {
	gen, err := NewGenerator(context.Background(), ProviderConfig{Provider: ProviderAnthropic, Anthropic: ClientConfig{APIKey: "k"}})
	if err != nil {
		t.Fatalf("anthropic: %v", err)
	}
	if _, ok := gen.(*Runner); !ok {
		t.Errorf("anthropic generator = %T, want *Runner", gen)
	}

	gen, err = NewGenerator(context.Background(), ProviderConfig{Provider: ProviderGemini, Gemini: GeminiConfig{APIKey: "k"}})
	if err != nil {
		t.Fatalf("gemini: %v", err)
	}
	if _, ok := gen.(*GeminiClient); !ok {
		t.Errorf("gemini generator = %T, want *GeminiClient", gen)
	}

	if _, err := NewGenerator(context.Background(), ProviderConfig{Provider: "openai"}); err == nil {
		t.Error("unknown provider should fail")
	}
}
