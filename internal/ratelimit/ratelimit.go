package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/amishk599/jobsieve/internal/ai"
)

// HostLimiter enforces a minimum delay between requests to the same host.
type HostLimiter struct {
	mu        sync.Mutex
	nextSlot  map[string]time.Time // key: hostname
	minDelay  time.Duration
	overrides map[string]time.Duration
}

// NewHostLimiter creates a limiter that spaces requests to the same host by
// minDelay, or by the host's entry in overrides when present.
func NewHostLimiter(minDelay time.Duration, overrides map[string]time.Duration) *HostLimiter {
	return &HostLimiter{
		nextSlot:  make(map[string]time.Time),
		minDelay:  minDelay,
		overrides: overrides,
	}
}

func (r *HostLimiter) delayFor(host string) time.Duration {
	if d, ok := r.overrides[host]; ok {
		return d
	}
	return r.minDelay
}

// Wait blocks until host may be contacted again. Each caller reserves its own
// slot under the lock, so concurrent waiters are spaced out rather than
// released together. Returns an error if ctx is cancelled while waiting.
func (r *HostLimiter) Wait(ctx context.Context, host string) error {
	delay := r.delayFor(host)

	r.mu.Lock()
	now := time.Now()
	slot, ok := r.nextSlot[host]
	if !ok || slot.Before(now) {
		// First request for this host, or enough time has passed.
		slot = now
	}
	r.nextSlot[host] = slot.Add(delay)
	r.mu.Unlock()

	remaining := time.Until(slot)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", host, ctx.Err())
	case <-timer.C:
	}
	return nil
}

// WaitURL is Wait keyed by the hostname of rawURL.
func (r *HostLimiter) WaitURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("rate limiter: parse %q: %w", rawURL, err)
	}
	return r.Wait(ctx, u.Hostname())
}

// Provider is a decorator that enforces host-level rate limiting before
// delegating to the wrapped LLMProvider.
type Provider struct {
	inner   ai.LLMProvider
	limiter *HostLimiter
	host    string // LLM endpoint host
}

var _ ai.LLMProvider = (*Provider)(nil)

// NewProvider wraps an LLMProvider with rate limiting keyed by host.
func NewProvider(inner ai.LLMProvider, limiter *HostLimiter, host string) *Provider {
	return &Provider{
		inner:   inner,
		limiter: limiter,
		host:    host,
	}
}

// Complete waits for the limiter, then delegates to the wrapped provider.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx, p.host); err != nil {
		return "", err
	}
	return p.inner.Complete(ctx, prompt)
}
