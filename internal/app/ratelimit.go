package app

import (
	"context"
	"fmt"
	"time"

	"openstays_catalog/internal/domain"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int64
	Count      int64
	Remaining  int64
	Reset      time.Duration
	RetryAfter time.Duration
}

// RateLimiter counts requests per identity in a window kept by the counter
// store. Every check charges before comparing, so a racing caller may
// overshoot by one request.
type RateLimiter struct {
	store  domain.CounterStore
	window time.Duration
	max    int64
}

func NewRateLimiter(s domain.CounterStore, window time.Duration, max int64) *RateLimiter {
	return &RateLimiter{store: s, window: window, max: max}
}

func (l *RateLimiter) Window() time.Duration { return l.window }

// Admit charges one request to id. Store failures are returned as-is and
// never retried here.
func (l *RateLimiter) Admit(ctx context.Context, id domain.Identity) (Decision, error) {
	st, err := l.store.Increment(ctx, CounterKey(id), l.window, OverrideKey(id))
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit increment %s: %w", id, err)
	}

	limit := l.max
	if st.Override > 0 {
		limit = st.Override
	}
	reset := st.TTL
	if reset <= 0 {
		reset = l.window
	}

	d := Decision{Limit: limit, Count: st.Count, Reset: reset}
	if st.Count <= limit {
		d.Allowed = true
		d.Remaining = limit - st.Count
		return d, nil
	}
	d.RetryAfter = reset
	return d, nil
}

// Decrement refunds one request, e.g. for a call later judged invalid.
func (l *RateLimiter) Decrement(ctx context.Context, id domain.Identity) error {
	return l.store.Decrement(ctx, CounterKey(id))
}

func (l *RateLimiter) Reset(ctx context.Context, id domain.Identity) error {
	return l.store.Reset(ctx, CounterKey(id))
}

// SetOverride replaces the default limit for id; limit <= 0 restores it.
func (l *RateLimiter) SetOverride(ctx context.Context, id domain.Identity, limit int64) error {
	return l.store.SetOverride(ctx, OverrideKey(id), limit)
}

func CounterKey(id domain.Identity) string { return "rate_limit:" + id.String() }

func OverrideKey(id domain.Identity) string { return "rate_limit:override:" + id.String() }

// ResolveIdentity picks exactly one identity: api key, then oauth client,
// then source address.
func ResolveIdentity(c *domain.Credential, remoteAddr string) domain.Identity {
	if c != nil && c.ID != "" {
		switch c.Kind {
		case domain.IdentityAPIKey, domain.IdentityOAuth:
			return domain.Identity{Kind: c.Kind, Value: c.ID}
		}
	}
	return domain.Identity{Kind: domain.IdentityIP, Value: remoteAddr}
}
