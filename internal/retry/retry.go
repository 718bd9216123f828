// Package retry wraps transient-error retry policy shared by indexer and
// download-client adapters: exponential backoff, base 1s, cap 30s, at most
// 5 attempts.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures the backoff schedule. Zero values fall back to the
// spec defaults (base 1s, cap 30s, 5 attempts).
type Policy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts uint64
}

// DefaultPolicy is the spec-mandated default: base 1s, cap 30s, max 5 attempts.
var DefaultPolicy = Policy{BaseDelay: time.Second, MaxDelay: 30 * time.Second, MaxAttempts: 5}

func (p Policy) resolve() Policy {
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultPolicy.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultPolicy.MaxDelay
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	return p
}

// Do retries fn with exponential backoff until it succeeds, the context is
// cancelled, or the attempt budget is exhausted. fn is responsible for
// distinguishing transient from permanent failures: wrap a permanent error
// in backoff.Permanent to stop retrying immediately.
func Do(ctx context.Context, p Policy, fn func() error) error {
	p = p.resolve()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.1

	bctx := backoff.WithContext(backoff.WithMaxRetries(b, p.MaxAttempts-1), ctx)
	return backoff.Retry(fn, bctx)
}
