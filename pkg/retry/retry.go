// Package retry implements the MIRIX-style exponential backoff policy (§4.1,
// §6 Configuration). Its caller is the fact extractor's LLM call; the storage
// layer does not use it, so pool acquisition and database queries are not
// retried. It wraps github.com/cenkalti/backoff/v4 for the exponential
// schedule; AgentMem supplies the policy defaults, full jitter, and the
// errs.Retryable classification hook.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

// Policy holds the exponential backoff parameters described in §6:
// attempts=3, initial=100ms, factor=2.0, max=2s, jitter=full.
type Policy struct {
	Attempts        int
	InitialInterval time.Duration
	Factor          float64
	MaxInterval     time.Duration
}

// DefaultPolicy returns the spec's documented defaults.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:        3,
		InitialInterval: 100 * time.Millisecond,
		Factor:          2.0,
		MaxInterval:     2 * time.Second,
	}
}

func (p Policy) newBackoff(ctx context.Context) backoff.BackOffContext {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.Multiplier = p.Factor
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = 0 // bounded by attempt count instead, via WithMaxRetries
	eb.RandomizationFactor = 0
	return backoff.WithContext(fullJitter{eb}, ctx)
}

// fullJitter draws each wait uniformly from [0, d], where d is the
// exponential interval computed by the wrapped backoff.
type fullJitter struct {
	backoff.BackOff
}

func (f fullJitter) NextBackOff() time.Duration {
	d := f.BackOff.NextBackOff()
	if d <= 0 {
		return d
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

// Do runs fn, retrying on errors classified as errs.Retryable (Transient)
// according to the policy's attempt count and exponential-with-full-jitter
// backoff. Deadlock and serialization-failure errors are retryable;
// constraint violations are not, because callers are expected to wrap those
// as errs.Conflict rather than errs.Transient.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	b := backoff.WithMaxRetries(p.newBackoff(ctx), uint64(attempts-1))

	var lastErr error
	op := func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !errs.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(op, b); err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}
