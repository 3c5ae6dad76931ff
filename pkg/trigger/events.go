package trigger

import "time"

// StateChangeEvent is emitted when the dispatcher lifecycle state changes.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// WriteEvent is emitted after a combined batch reached the wire.
type WriteEvent struct {
	// Value is the byte written, the OR of all codes in the batch.
	Value byte

	// Codes is how many codes were combined into the write.
	Codes int

	// Attempts is the number of write attempts, 1 for a clean write.
	Attempts int

	// Duration covers all attempts including retry backoff.
	Duration time.Duration
}

// WriteErrorEvent is emitted when a transport write fails.
type WriteErrorEvent struct {
	Error error

	// Value is the byte that could not be written.
	Value byte

	// Dropped is true when retries were exhausted and the batch abandoned;
	// false for a failed attempt that will still be retried.
	Dropped bool
}

// EventHandler receives notifications about dispatcher operations.
// All methods are called synchronously from the sender goroutine.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnWrite(event WriteEvent)
	OnWriteError(event WriteErrorEvent)
}

// BaseEventHandler provides no-op implementations of all EventHandler
// methods. Embed it to implement only the events you care about.
type BaseEventHandler struct{}

// OnStateChange does nothing.
func (BaseEventHandler) OnStateChange(event StateChangeEvent) {}

// OnWrite does nothing.
func (BaseEventHandler) OnWrite(event WriteEvent) {}

// OnWriteError does nothing.
func (BaseEventHandler) OnWriteError(event WriteErrorEvent) {}
