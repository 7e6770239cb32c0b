package ai

import (
	"context"
	"strconv"
	"time"
)

// LLMProvider sends a prompt to an LLM and returns the raw text response.
// Implementations report HTTP and network failures as *model.TransportError
// and malformed envelopes as *model.SchemaError.
type LLMProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
