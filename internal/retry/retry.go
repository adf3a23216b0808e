// Package retry runs remote operations under a bounded, fixed-delay retry
// policy. Errors are classified by a caller-supplied function so that
// conditions such as a missing destination tab fail immediately.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Class is the outcome of classifying an error.
type Class int

const (
	// Retryable errors are attempted again after the policy delay.
	Retryable Class = iota
	// Fatal errors stop the operation immediately.
	Fatal
)

// Default policy values: three attempts in total, two minutes apart.
const (
	DefaultAttempts = 3
	DefaultDelay    = 2 * time.Minute
)

// Policy describes how an operation is retried.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Delay is the fixed wait between attempts. There is no backoff or jitter.
	Delay time.Duration
	// Classify decides whether an error is worth another attempt. Nil treats
	// every error as retryable.
	Classify func(error) Class
	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait with the attempt that just failed.
	OnRetry func(attempt int, err error)
}

// New returns a policy with the default attempt count and delay.
func New(classify func(error) Class) Policy {
	return Policy{Attempts: DefaultAttempts, Delay: DefaultDelay, Classify: classify}
}

// Error is returned when every attempt failed with a retryable error.
type Error struct {
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the last attempt's error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Do calls fn until it succeeds, returns a fatal error, or the attempts are
// exhausted. It returns the number of attempts made alongside the result.
// Fatal errors are returned unchanged; exhaustion is reported as *Error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return attempt, nil
		}
		if p.classify(err) == Fatal {
			return attempt, err
		}
		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if serr := sleep(ctx, p.Delay); serr != nil {
			return attempt, serr
		}
	}
	return attempts, &Error{Attempts: attempts, Err: err}
}

func (p Policy) classify(err error) Class {
	if p.Classify == nil {
		return Retryable
	}
	return p.Classify(err)
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
