package graph

import (
	"errors"
	"math/rand"
	"time"
)

// ErrInvalidRetryPolicy indicates a RetryPolicy that violates its constraints.
var ErrInvalidRetryPolicy = errors.New("invalid retry policy")

// RetryPolicy configures automatic retry of failed node executions.
//
// When a node returns an error, the policy decides whether the failure is
// retryable and how long to wait before the next attempt. Delays grow
// exponentially with jitter so concurrent runs don't retry in lockstep.
type RetryPolicy struct {
	// MaxAttempts is the total number of execution attempts, including the
	// initial one. Must be >= 1; a value of 1 disables retries. The
	// recommendation workflow uses 2: at most one retry per node.
	MaxAttempts int

	// BaseDelay is the base delay for exponential backoff between attempts.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth. Zero means no cap.
	MaxDelay time.Duration

	// Retryable reports whether an error is worth retrying. Nil treats every
	// error as permanent.
	Retryable func(error) bool
}

// Validate checks the policy's constraints.
func (rp *RetryPolicy) Validate() error {
	if rp.MaxAttempts < 1 {
		return ErrInvalidRetryPolicy
	}
	if rp.MaxDelay > 0 && rp.BaseDelay > 0 && rp.MaxDelay < rp.BaseDelay {
		return ErrInvalidRetryPolicy
	}
	return nil
}

// computeBackoff returns the delay before retry attempt n (zero-based):
// min(base * 2^attempt, maxDelay) + jitter(0, base).
func computeBackoff(attempt int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}

	delay := base * (1 << attempt)
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}

	// Jitter spreads synchronized retries apart; not security-sensitive.
	jitter := time.Duration(rand.Int63n(int64(base))) // #nosec G404

	return delay + jitter
}
