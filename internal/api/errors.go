package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/api/googleapi"
)

// ProviderError is a failed call to a model provider, reduced to what the
// caller needs for classification.
type ProviderError struct {
	Provider string
	Status   int
	Retry    time.Duration
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// HTTPStatus returns the upstream HTTP status, or 0 when none was received.
func (e *ProviderError) HTTPStatus() int { return e.Status }

// RetryAfter returns the server-suggested delay, or 0.
func (e *ProviderError) RetryAfter() time.Duration { return e.Retry }

func wrapAnthropicError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	pe := &ProviderError{Provider: "anthropic", Err: err}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		pe.Status = apiErr.StatusCode
		if apiErr.Response != nil {
			pe.Retry = parseRetryAfter(apiErr.Response.Header, time.Now())
		}
	}
	return pe
}

func wrapGoogleError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	pe := &ProviderError{Provider: "gemini", Err: err}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		pe.Status = apiErr.Code
		pe.Retry = parseRetryAfter(apiErr.Header, time.Now())
	}
	return pe
}

// parseRetryAfter reads a Retry-After header in either seconds or HTTP-date form.
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	if h == nil {
		return 0
	}
	if ms := strings.TrimSpace(h.Get("retry-after-ms")); ms != "" {
		if v, err := strconv.ParseFloat(ms, 64); err == nil && v > 0 {
			return time.Duration(v * float64(time.Millisecond))
		}
	}
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
