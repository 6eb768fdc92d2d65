// Package retrywrap applies bounded exponential backoff to outbound calls.
//
// Only stream establishment goes through Do; partially consumed streams are
// never retried, since that would risk duplicate or reordered content.
package retrywrap

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 200 * time.Millisecond
)

// Policy describes the retry bounds for establishment calls.
type Policy struct {
	MaxAttempts uint
	BaseDelay   time.Duration
}

// DefaultPolicy returns the standard establishment retry policy.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Do runs fn, retrying on error with exponential backoff and jitter until
// the attempt budget is spent or ctx is cancelled. The last error is
// returned.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = DefaultMaxAttempts
	}
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = base
	// MaxAttempts counts the first call, backoff.WithMaxRetries counts
	// retries after it.
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
	return backoff.Retry(fn, policy)
}
