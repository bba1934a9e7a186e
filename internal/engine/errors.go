package engine

import "errors"

// Sentinel errors for the configuration-error taxonomy (spec.md §7.1).
// Wrapped with fmt.Errorf("...: %w", ...) at the point of use so callers
// can match with errors.Is while still getting a specific message.
var (
	// ErrInvalidWindowSize is returned when window_size < 2.
	ErrInvalidWindowSize = errors.New("engine: window_size must be >= 2")

	// ErrWindowExceedsHistory is returned when window_size > max_history
	// and max_history is finite.
	ErrWindowExceedsHistory = errors.New("engine: window_size must not exceed max_history")

	// ErrNilSink is returned when no output sink is configured.
	ErrNilSink = errors.New("engine: output sink is required")

	// ErrInvariantViolation marks a fatal programming-bug condition
	// (spec.md §7.2): the core aborts rather than guessing at recovery.
	ErrInvariantViolation = errors.New("engine: invariant violation")
)
