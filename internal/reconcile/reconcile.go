// Package reconcile bounds remote calls with a timeout and settles the
// outcome of writes whose acknowledgement was lost. A mutation is never
// sent twice; instead a read-only probe checks whether it landed.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evcraddock/estate-bids/internal/apperr"
)

// Policy controls timeouts and probing.
type Policy struct {
	// Timeout bounds each individual call.
	Timeout time.Duration
	// PollInterval is the pause between probes.
	PollInterval time.Duration
	// PollAttempts is how many probes to make before giving up.
	PollAttempts int
}

// DefaultTimeout applies when a policy leaves Timeout unset.
const DefaultTimeout = 30 * time.Second

// DefaultPolicy returns the policy used by the HTTP client.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:      DefaultTimeout,
		PollInterval: time.Second,
		PollAttempts: 5,
	}
}

func (p Policy) timeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultTimeout
	}
	return p.Timeout
}

// ErrUnknownOutcome is wrapped in the error returned when a write timed out
// and probing could not confirm it.
var ErrUnknownOutcome = errors.New("write outcome unknown")

// Probe reports whether a write is visible. It returns the observed value
// and true when it is.
type Probe[T any] func(ctx context.Context) (T, bool, error)

// Mutate runs write once under the policy timeout. When the call fails in a
// way that leaves its effect unknown (deadline or transport failure) it
// polls probe until the write is observed or attempts run out. Any other
// error is returned unchanged.
func Mutate[T any](ctx context.Context, p Policy, write func(ctx context.Context) (T, error), probe Probe[T]) (T, error) {
	var zero T

	callCtx, cancel := context.WithTimeout(ctx, p.timeout())
	v, err := write(callCtx)
	cancel()
	if err == nil {
		return v, nil
	}
	if !Lost(err) || probe == nil {
		return zero, err
	}

	slog.Warn("write acknowledgement lost, probing", "error", err)

	for attempt := 1; attempt <= p.PollAttempts; attempt++ {
		if attempt > 1 || p.PollInterval > 0 {
			select {
			case <-ctx.Done():
				return zero, fmt.Errorf("%w: %w", ErrUnknownOutcome, ctx.Err())
			case <-time.After(p.PollInterval):
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, p.timeout())
		got, landed, probeErr := probe(probeCtx)
		cancel()

		if probeErr != nil {
			slog.Debug("probe failed", "attempt", attempt, "error", probeErr)
			continue
		}
		if landed {
			slog.Info("write confirmed by probe", "attempt", attempt)
			return got, nil
		}
	}

	return zero, apperr.Network(fmt.Errorf("%w: %w", ErrUnknownOutcome, err), "write not confirmed after %d probes", p.PollAttempts)
}

// Read runs an idempotent read under the policy timeout, retrying once on a
// transport failure.
func Read[T any](ctx context.Context, p Policy, read func(ctx context.Context) (T, error)) (T, error) {
	var v T
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout())
		v, err = read(callCtx)
		cancel()
		if err == nil || !Lost(err) || ctx.Err() != nil {
			return v, err
		}
	}
	return v, err
}

// Lost reports whether err leaves the effect of a call unknown.
func Lost(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || apperr.Is(err, apperr.KindNetwork)
}
