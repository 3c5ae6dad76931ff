package domain

import "errors"

// Domain errors represent error conditions in the portcodes domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrClosed is returned when SendPortcode or Flush is called after
	// Close() has begun.
	ErrClosed = errors.New("portcodes: dispatcher closed")

	// ErrQueueFull is returned when the request queue is saturated.
	// The call never blocks; the caller may retry or drop the trigger.
	ErrQueueFull = errors.New("portcodes: request queue full")

	// ErrCodeOutOfRange is returned for codes outside 0..255.
	ErrCodeOutOfRange = errors.New("portcodes: code must be within 0..255")

	// ErrWriteRetriesExhausted is reported when a combined batch was dropped
	// after the configured number of write attempts failed.
	ErrWriteRetriesExhausted = errors.New("portcodes: write retries exhausted")

	// ErrShutdownTimeout is returned when the sender did not drain within
	// the shutdown deadline.
	ErrShutdownTimeout = errors.New("portcodes: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("portcodes: invalid configuration")
)
