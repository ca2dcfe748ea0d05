// Package emit provides observability events for workflow execution.
package emit

// Emitter receives observability events from the engine.
//
// Implementations must be safe for concurrent use (multiple runs emit at
// once), must not block workflow execution, and must not panic; backend
// failures are swallowed or logged internally.
type Emitter interface {
	// Emit delivers one event to the configured backend.
	Emit(event Event)
}

// Event is one observability event from a workflow run.
type Event struct {
	// RunID identifies the run that emitted this event.
	RunID string

	// Step is the 1-indexed step number, or 0 for run-level events.
	Step int

	// NodeID names the node involved, empty for run-level events.
	NodeID string

	// Msg is a short human-readable description.
	Msg string

	// Meta carries additional structured data, e.g. "error", "attempt",
	// "cause".
	Meta map[string]interface{}
}
