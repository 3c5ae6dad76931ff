package app

import (
	"sync"
	"time"

	"github.com/mulimoen/portcodes/internal/domain"
	"github.com/mulimoen/portcodes/internal/ports"
)

// ShutdownTimeout is the maximum time Close waits for the sender to drain.
const ShutdownTimeout = 10 * time.Second

// State represents the lifecycle state of the dispatcher.
type State int

const (
	StateRunning State = iota
	StateClosing
	StateClosed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Lifecycle manages the state machine for the dispatcher. A dispatcher is
// born Running, moves to Closing when Close() is called, and reaches Closed
// once the sender goroutine has exited and the transport is released.
type Lifecycle struct {
	mu           sync.RWMutex
	state        State
	wg           sync.WaitGroup
	logger       ports.Logger
	eventEmitter EventEmitter
}

// EventEmitter is called when the lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// NewLifecycle creates a new lifecycle manager in StateRunning.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:        StateRunning,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
// Returns an error if the transition is not valid.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	// Only forward transitions exist: Running -> Closing -> Closed.
	switch oldState {
	case StateRunning:
		if newState != StateClosing {
			l.mu.Unlock()
			return domain.ErrClosed
		}
	case StateClosing:
		if newState != StateClosed {
			l.mu.Unlock()
			return domain.ErrClosed
		}
	case StateClosed:
		l.mu.Unlock()
		return domain.ErrClosed
	}

	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		ports.String("from", oldState.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)

	return nil
}

// AddWorker increments the worker count.
func (l *Lifecycle) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone decrements the worker count.
func (l *Lifecycle) WorkerDone() {
	l.wg.Done()
}

// WaitWithTimeout waits for all workers to finish with a timeout.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, abandoning sender",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
