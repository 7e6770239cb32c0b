package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/jobsieve/internal/ai"
	"github.com/amishk599/jobsieve/internal/model"
)

// Provider is a decorator that retries transient LLM failures with
// exponential backoff and jitter before giving up.
type Provider struct {
	inner      ai.LLMProvider
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

var _ ai.LLMProvider = (*Provider)(nil)

// NewProvider wraps an LLMProvider with retry logic.
// maxRetries is the number of additional attempts after the first failure (default: 2).
// baseDelay is the delay before the first retry (default: 5s), doubled on each subsequent retry.
func NewProvider(inner ai.LLMProvider, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Provider {
	return &Provider{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Complete calls the wrapped provider, retrying on retryable transport errors.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := p.inner.Complete(ctx, prompt)
	if err == nil {
		return out, nil
	}

	if !isRetryable(err) {
		return "", err
	}

	lastErr := err
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		delay := p.backoffDelay(attempt, lastErr)

		p.logger.Warn("retrying llm call after transient error",
			"attempt", attempt,
			"max_retries", p.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		out, err = p.inner.Complete(ctx, prompt)
		if err == nil {
			return out, nil
		}

		if !isRetryable(err) {
			return "", err
		}
		lastErr = err
	}

	return "", lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// A Retry-After duration on the error takes precedence.
func (p *Provider) backoffDelay(attempt int, err error) time.Duration {
	var tErr *model.TransportError
	if errors.As(err, &tErr) && tErr.RetryAfter > 0 {
		return tErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := p.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	// Apply ±30% jitter
	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return delay
}

// isRetryable reports whether err is a transport failure worth another
// attempt: no response at all, 429, or 5xx. Schema errors are never retried.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Caller gave up; never retry.
	if errors.Is(err, context.Canceled) {
		return false
	}

	var tErr *model.TransportError
	if !errors.As(err, &tErr) {
		return false
	}

	switch {
	case tErr.StatusCode == 0:
		return true
	case tErr.StatusCode == 429:
		return true
	case tErr.StatusCode >= 500:
		return true
	default:
		return false
	}
}
