package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/muurk/printerpick/internal/discovery"
	"github.com/muurk/printerpick/internal/logging"
)

// ErrStopTimeout is returned when discovery keeps reporting ErrProcessing
// for longer than RetryOptions.Timeout.
var ErrStopTimeout = errors.New("discovery did not stop in time")

// RetryOptions bounds the stop retry loop.
type RetryOptions struct {
	// InitialInterval is the wait after the first busy stop
	// Default: 20ms
	InitialInterval time.Duration

	// MaxInterval caps the exponential growth of the wait
	// Default: 250ms
	MaxInterval time.Duration

	// Timeout is the total time spent retrying before giving up
	// Default: 5s
	Timeout time.Duration
}

// DefaultRetryOptions returns the stop retry defaults.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
		Timeout:         5 * time.Second,
	}
}

// withDefaults fills zero fields. A zero Timeout would retry forever.
func (o RetryOptions) withDefaults() RetryOptions {
	d := DefaultRetryOptions()
	if o.InitialInterval <= 0 {
		o.InitialInterval = d.InitialInterval
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = d.MaxInterval
	}
	if o.MaxInterval < o.InitialInterval {
		o.MaxInterval = o.InitialInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	return o
}

func (o RetryOptions) newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.InitialInterval
	b.MaxInterval = o.MaxInterval
	b.MaxElapsedTime = o.Timeout
	b.Reset()
	return backoff.WithContext(b, ctx)
}

// stopWithRetry calls d.Stop until it succeeds, fails with something other
// than ErrProcessing, or the retry budget runs out.
func stopWithRetry(ctx context.Context, d discovery.Discoverer, opts RetryOptions) error {
	attempts := 0
	var busy error

	operation := func() error {
		attempts++
		err := d.Stop()
		if err == nil {
			return nil
		}
		if discovery.IsProcessing(err) {
			busy = err
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		logging.LogStopRetry(attempts, wait, err)
	}

	err := backoff.RetryNotify(operation, opts.withDefaults().newBackOff(ctx), notify)
	if err == nil {
		return nil
	}

	// Exhausted budget or canceled context while still busy.
	if busy != nil && (discovery.IsProcessing(err) || ctx.Err() != nil) {
		return fmt.Errorf("%w after %d attempts: %w", ErrStopTimeout, attempts, busy)
	}
	return err
}
