// Package retry wraps single fallible destination calls in exponential backoff.
//
// Retries are decided per call by a Classifier: permanent errors are returned
// immediately, transient errors are retried until the policy's elapsed-time
// budget runs out, at which point the last error is returned unchanged.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/logger"
	"github.com/ajitpratap0/nebula-ingest/pkg/metrics"
)

// Classifier reports whether an error is transient.
type Classifier func(error) bool

// DefaultClassifier is the destination-agnostic classifier used by every adapter.
var DefaultClassifier Classifier = errors.IsTransient

// Policy defines retry behavior
type Policy struct {
	InitialInterval     time.Duration
	Multiplier          float64
	RandomizationFactor float64
	MaxInterval         time.Duration
	// MaxElapsedTime caps the total time spent retrying one call. Zero means no cap.
	MaxElapsedTime time.Duration
}

// DefaultPolicy returns the standard exponential policy: 500ms initial delay
// growing by 1.5x with 50% jitter, at most 60s between attempts and 15 minutes overall.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval:     500 * time.Millisecond,
		Multiplier:          1.5,
		RandomizationFactor: 0.5,
		MaxInterval:         60 * time.Second,
		MaxElapsedTime:      15 * time.Minute,
	}
}

// WithMaxElapsed returns a copy of the policy with a different elapsed budget.
func (p Policy) WithMaxElapsed(d time.Duration) Policy {
	p.MaxElapsedTime = d
	return p
}

// WithInterval returns a copy of the policy with different delay bounds.
func (p Policy) WithInterval(initial, max time.Duration) Policy {
	p.InitialInterval = initial
	p.MaxInterval = max
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.RandomizationFactor
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = p.MaxElapsedTime
	b.Reset()
	return backoff.WithContext(b, ctx)
}

// Do invokes op until it succeeds, fails permanently, or the policy's budget is spent.
// A nil classify uses DefaultClassifier.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error), classify Classifier) (T, error) {
	if classify == nil {
		classify = DefaultClassifier
	}

	attempt := 0
	var lastErr error
	call := func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !classify(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	notify := func(err error, next time.Duration) {
		metrics.RetriesTotal.Inc()
		logger.Get().Warn("transient error encountered, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", next))
	}

	v, err := backoff.RetryNotifyWithData(call, p.backOff(ctx), notify)
	if err != nil && ctx.Err() != nil && lastErr != nil {
		// Surface the destination error rather than the bare cancellation.
		return v, lastErr
	}
	return v, err
}

// Run is Do for operations that only return an error.
func Run(ctx context.Context, p Policy, op func(context.Context) error, classify Classifier) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, classify)
	return err
}
