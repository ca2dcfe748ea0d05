package recommend

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the machine-readable error classification surfaced to callers.
// Failed runs return a structured {kind, message} payload, never a stack
// trace.
type Kind string

// Error kinds.
const (
	KindValidation Kind = "validation"
	KindUpstream   Kind = "upstream"
	KindNotFound   Kind = "not_found"
	KindCancelled  Kind = "cancelled"
	KindInternal   Kind = "internal"
)

// ValidationError reports bad caller input. No run is created when input
// fails validation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamServiceError reports a language-model service failure: unreachable,
// timed out, or returned output the stage could not parse.
type UpstreamServiceError struct {
	// Service names the collaborator, e.g. "model".
	Service string

	// Timeout marks deadline-caused failures.
	Timeout bool

	Cause error
}

func (e *UpstreamServiceError) Error() string {
	kind := "error"
	if e.Timeout {
		kind = "timeout"
	}
	return fmt.Sprintf("%s service %s: %v", e.Service, kind, e.Cause)
}

func (e *UpstreamServiceError) Unwrap() error {
	return e.Cause
}

// NotFoundError reports an unknown or evicted run ID.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	return "run not found: " + e.RunID
}

// upstreamErr wraps a model-call failure, marking timeouts.
func upstreamErr(err error) *UpstreamServiceError {
	return &UpstreamServiceError{
		Service: "model",
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Cause:   err,
	}
}

// IsTransient reports whether an error is worth retrying. Upstream service
// failures are transient, including per-node deadline errors a stage
// surfaced without wrapping; everything else is permanent. Used as the
// engine's retry predicate.
func IsTransient(err error) bool {
	var upstream *UpstreamServiceError
	if errors.As(err, &upstream) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// KindOf classifies an error for the caller-facing payload.
func KindOf(err error) Kind {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return KindValidation
	}
	var upstream *UpstreamServiceError
	if errors.As(err, &upstream) {
		return KindUpstream
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return KindNotFound
	}
	// A stage that hit its per-node deadline is an upstream timeout even when
	// the context error surfaced unwrapped.
	if errors.Is(err, context.DeadlineExceeded) {
		return KindUpstream
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindInternal
}
