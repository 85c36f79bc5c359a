package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestRateLimitError(t *testing.T) {
	err := NewRateLimitError("slow down")

	if err.Error() != "slow down" {
		t.Fatalf("Error message = %q, want %q", err.Error(), "slow down")
	}

	if !IsRateLimitError(err) {
		t.Fatalf("IsRateLimitError returned false for RateLimitError")
	}

	wrapped := stdErrors.Join(err)
	if !IsRateLimitError(wrapped) {
		t.Fatalf("IsRateLimitError returned false for wrapped RateLimitError")
	}
}

func TestRateLimitErrorWithRetry_VariousDurations(t *testing.T) {
	tests := []struct {
		name            string
		duration        time.Duration
		expectedMessage string
	}{
		{
			name:            "zero duration omits hint",
			duration:        0,
			expectedMessage: "rate limited",
		},
		{
			name:            "30 seconds",
			duration:        30 * time.Second,
			expectedMessage: "rate limited (retry after 30s)",
		},
		{
			name:            "2 minutes",
			duration:        2 * time.Minute,
			expectedMessage: "rate limited (retry after 2m0s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRateLimitErrorWithRetry("rate limited", tt.duration)
			if err.Error() != tt.expectedMessage {
				t.Fatalf("Error message = %q, want %q", err.Error(), tt.expectedMessage)
			}
			if err.RetryAfter != tt.duration {
				t.Fatalf("RetryAfter = %v, want %v", err.RetryAfter, tt.duration)
			}
		})
	}
}

func TestStopProcessingError(t *testing.T) {
	err := NewStopProcessingError("user stopped")

	if err.Error() != "user stopped" {
		t.Fatalf("Error message = %q, want %q", err.Error(), "user stopped")
	}

	if !IsStopProcessingError(fmt.Errorf("picker: %w", err)) {
		t.Fatalf("IsStopProcessingError returned false for wrapped StopProcessingError")
	}

	if got := NewStopProcessingError("").Error(); got != DefaultStopReason {
		t.Fatalf("empty reason = %q, want %q", got, DefaultStopReason)
	}
}

func TestSourceError_Message(t *testing.T) {
	err := NewSourceError("qidian", KindParse, stdErrors.New("script tag missing"))

	expected := "qidian: parse error: script tag missing"
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}
	if !IsSourceError(fmt.Errorf("round 2: %w", err)) {
		t.Fatalf("IsSourceError returned false for wrapped SourceError")
	}
	if IsRateLimitError(err) {
		t.Fatalf("parse error must not be reported as rate limit")
	}
}

func TestSourceError_Unwrap(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := NewSourceError("sfacg", KindNetwork, cause)

	if !stdErrors.Is(err, cause) {
		t.Fatalf("errors.Is did not find the wrapped cause")
	}
}

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		kind      SourceErrorKind
		rateLimit bool
		message   string
	}{
		{
			name:      "too many requests",
			status:    http.StatusTooManyRequests,
			kind:      KindQuota,
			rateLimit: true,
			message:   "tomato: quota error (HTTP 429): tomato is throttling requests",
		},
		{
			name:      "service unavailable",
			status:    http.StatusServiceUnavailable,
			kind:      KindQuota,
			rateLimit: true,
			message:   "tomato: quota error (HTTP 503): tomato is throttling requests",
		},
		{
			name:    "forbidden",
			status:  http.StatusForbidden,
			kind:    KindStatus,
			message: "tomato: status error (HTTP 403): unexpected status 403",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewStatusError("tomato", tt.status)
			if err.Kind != tt.kind {
				t.Fatalf("Kind = %q, want %q", err.Kind, tt.kind)
			}
			if IsRateLimitError(err) != tt.rateLimit {
				t.Fatalf("IsRateLimitError = %v, want %v", !tt.rateLimit, tt.rateLimit)
			}
			if err.Error() != tt.message {
				t.Fatalf("Error message = %q, want %q", err.Error(), tt.message)
			}
			if SourceErrorKindOf(err) != tt.kind {
				t.Fatalf("SourceErrorKindOf = %q, want %q", SourceErrorKindOf(err), tt.kind)
			}
		})
	}
}

func TestSourceErrorKindOf_NotSourceError(t *testing.T) {
	if kind := SourceErrorKindOf(stdErrors.New("plain")); kind != "" {
		t.Fatalf("SourceErrorKindOf = %q, want empty", kind)
	}
}
