package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrMaxRetriesExceeded is returned once every attempt has failed.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Kind tells the policy how to react to an error.
type Kind int

const (
	// Transient errors are retried after an exponential backoff.
	Transient Kind = iota
	// RateLimited errors are retried after the server advised delay.
	RateLimited
	// Permanent errors are returned immediately.
	Permanent
)

func (k Kind) String() string {
	switch k {
	case RateLimited:
		return "rate-limited"
	case Permanent:
		return "permanent"
	default:
		return "transient"
	}
}

// Verdict is the classification of a single failure.
type Verdict struct {
	Kind  Kind
	After time.Duration // Only meaningful for RateLimited, zero means unknown
}

// Classifier maps an error to a Verdict.
type Classifier func(error) Verdict

// RateLimitError marks an error as a rate limit signal.
type RateLimitError struct {
	After time.Duration
	Err   error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.After, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Stop wraps err so the default classifier does not retry it.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// DefaultClassifier understands RateLimitError, Stop and context errors.
// Everything else is transient.
func DefaultClassifier(err error) Verdict {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return Verdict{Kind: RateLimited, After: rl.After}
	}
	var pe *permanentError
	if errors.As(err, &pe) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Verdict{Kind: Permanent}
	}
	return Verdict{Kind: Transient}
}

// Policy is a bounded synchronous retry loop.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Classify    Classifier
	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New returns a policy with the given attempt ceiling and backoff seed.
func New(maxAttempts int, base time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, Base: base}
}

// Default is five attempts with a one second seed.
func Default() Policy {
	return New(5, time.Second)
}

// Do runs op until it succeeds, fails permanently or runs out of attempts.
func (p Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	_, err := Value(ctx, p, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Value is Do for operations that return a result.
func Value[T any](ctx context.Context, p Policy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	classify := p.Classify
	if classify == nil {
		classify = DefaultClassifier
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	backoff := p.Base
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		verdict := classify(err)
		if verdict.Kind == Permanent {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		wait := backoff
		if verdict.Kind == RateLimited && verdict.After > 0 {
			wait = verdict.After
		}
		slog.Debug("Retrying operation", "operation", name, "attempt", attempt, "kind", verdict.Kind.String(), "wait", wait, "error", err)
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
		backoff *= 2
	}
	return zero, fmt.Errorf("%s: %w after %d attempts: %w", name, ErrMaxRetriesExceeded, attempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
