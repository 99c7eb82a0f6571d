package llmerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    bool
	}{
		{ErrorTypeRateLimit, true},
		{ErrorTypeTransient, true},
		{ErrorTypeEmptyResponse, true},
		{ErrorTypeUnknown, true},
		{ErrorTypeAuth, false},
		{ErrorTypeBadPrompt, false},
	}
	for _, tt := range tests {
		err := NewError(tt.errType, "test")
		if got := err.IsRetryable(); got != tt.want {
			t.Errorf("%s: IsRetryable() = %v, want %v", tt.errType, got, tt.want)
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{429, ErrorTypeRateLimit},
		{401, ErrorTypeAuth},
		{403, ErrorTypeAuth},
		{400, ErrorTypeBadPrompt},
		{413, ErrorTypeBadPrompt},
		{422, ErrorTypeBadPrompt},
		{500, ErrorTypeTransient},
		{503, ErrorTypeTransient},
		{200, ErrorTypeUnknown},
		{404, ErrorTypeUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyStatus(tt.status); got != tt.want {
			t.Errorf("ClassifyStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestTypeOfAndIs(t *testing.T) {
	base := NewErrorWithStatus(ErrorTypeRateLimit, 429, "slow down")
	wrapped := fmt.Errorf("call failed: %w", base)

	if !Is(wrapped, ErrorTypeRateLimit) {
		t.Error("Is should see through wrapping")
	}
	if Is(wrapped, ErrorTypeAuth) {
		t.Error("Is should not match a different type")
	}
	if got := TypeOf(wrapped); got != ErrorTypeRateLimit {
		t.Errorf("TypeOf = %v", got)
	}
	if got := TypeOf(errors.New("plain")); got != ErrorTypeUnknown {
		t.Errorf("TypeOf(plain) = %v", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewErrorWithCause(ErrorTypeTransient, cause, "upstream hiccup")
	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
}

func TestErrorString(t *testing.T) {
	err := NewError(ErrorTypeAuth, "bad api key")
	got := err.Error()
	if got != "LLM error (auth): bad api key" {
		t.Errorf("Error() = %q", got)
	}
}

func TestGetRetryConfig(t *testing.T) {
	err := NewError(ErrorTypeAuth, "no key")
	if cfg := err.GetRetryConfig(); cfg.MaxRetries != 0 {
		t.Errorf("auth errors must not retry, got %d", cfg.MaxRetries)
	}
	rl := NewError(ErrorTypeRateLimit, "429")
	if cfg := rl.GetRetryConfig(); cfg.MaxRetries != DefaultRateLimitRetries {
		t.Errorf("rate limit retries = %d", cfg.MaxRetries)
	}
}
