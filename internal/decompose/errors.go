package decompose

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind is the coarse category of an upstream AI failure.
type Kind string

const (
	KindRateLimited Kind = "rate_limited"
	KindAuth        Kind = "auth"
	KindMalformed   Kind = "malformed_response"
	KindUnknown     Kind = "unknown"
)

// maxDetailRunes bounds how much provider text is ever kept.
const maxDetailRunes = 200

// Error is returned for every upstream AI failure.
// Message is safe to show to an end user; Detail is a bounded excerpt for logs.
type Error struct {
	Kind       Kind
	Message    string
	Detail     string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatuser is implemented by provider errors that carry an HTTP status.
type HTTPStatuser interface {
	HTTPStatus() int
}

// RetryAfterer is implemented by provider errors that know when to retry.
type RetryAfterer interface {
	RetryAfter() time.Duration
}

// classify maps a provider error onto the coarse taxonomy.
// Context cancellation is returned unchanged so callers can tell abandonment from failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}

	status := 0
	var hs HTTPStatuser
	if errors.As(err, &hs) {
		status = hs.HTTPStatus()
	}

	out := &Error{Kind: KindUnknown, Detail: truncate(err.Error(), maxDetailRunes), Err: err}
	switch {
	case status == http.StatusTooManyRequests:
		out.Kind = KindRateLimited
		var ra RetryAfterer
		if errors.As(err, &ra) {
			out.RetryAfter = ra.RetryAfter()
		}
		if out.RetryAfter > 0 {
			out.Message = fmt.Sprintf("The AI is handling too many requests. Please try again in %s.", humanizeDelay(out.RetryAfter))
		} else {
			out.Message = "The AI is handling too many requests. Please try again in a moment."
		}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		out.Kind = KindAuth
		out.Message = "The AI service is not configured correctly. Please contact the administrator."
	default:
		out.Message = "Something went wrong while talking to the AI. Please try again."
	}
	return out
}

// malformed wraps a parse failure.
func malformed(err error) *Error {
	return &Error{
		Kind:    KindMalformed,
		Message: "The AI returned an answer we could not read. Please try again.",
		Detail:  truncate(err.Error(), maxDetailRunes),
		Err:     err,
	}
}

// truncate cuts s to at most n runes, marking the cut.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// humanizeDelay renders a retry delay as "45 seconds" or "2 minutes".
func humanizeDelay(d time.Duration) string {
	if d < time.Minute {
		secs := int((d + time.Second - 1) / time.Second)
		if secs <= 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", secs)
	}
	mins := int((d + time.Minute - 1) / time.Minute)
	if mins == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", mins)
}

// UserMessage returns the text to show a user for any error from this package.
func UserMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "Something went wrong while talking to the AI. Please try again."
}
