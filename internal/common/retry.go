package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrRateLimit marks a failure caused by a remote request quota.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries is returned once every attempt has failed.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryOptions controls WithRetry. Zero fields take the defaults: three attempts,
// a 100ms first pause doubling up to 30s.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// RetryableError attaches a retry decision to an error.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return &RetryableError{Err: err, Retryable: false}
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 100 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	return o
}

// Pause returns how long to wait after the given failed attempt (1-based).
// Quota failures wait the full MaxDelay.
func (o RetryOptions) Pause(attempt int, err error) time.Duration {
	o = o.withDefaults()
	if errors.Is(err, ErrRateLimit) {
		return o.MaxDelay
	}
	pause := o.InitialDelay
	for i := 1; i < attempt && pause < o.MaxDelay; i++ {
		pause *= 2
	}
	return min(pause, o.MaxDelay)
}

// WithRetry runs operation until it succeeds or runs out of attempts. Errors wrapped
// with Permanent end the loop at once.
// Only export writes go through it; the extraction call is never retried.
func WithRetry(ctx context.Context, operation func(context.Context) error, opts RetryOptions) error {
	opts = opts.withDefaults()

	for attempt := 1; ; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}
		var re *RetryableError
		if errors.As(err, &re) && !re.Retryable {
			return err
		}
		if attempt >= opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempt, err)
		}

		pause := opts.Pause(attempt, err)
		slog.Warn("Retrying after failure", "attempt", attempt, "pause", pause, "error", err)

		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
