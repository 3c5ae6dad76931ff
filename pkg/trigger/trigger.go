package trigger

import (
	"fmt"
	"time"

	"github.com/mulimoen/portcodes/internal/adapters/console"
	"github.com/mulimoen/portcodes/internal/adapters/serialport"
	"github.com/mulimoen/portcodes/internal/app"
	"github.com/mulimoen/portcodes/internal/domain"
	"github.com/mulimoen/portcodes/internal/ports"
)

// State is the dispatcher lifecycle state.
type State = app.State

// Lifecycle states. A Dispatcher is Running from construction, Closing once
// Close() has been called, and Closed after the sender has drained and the
// transport is released.
const (
	StateRunning = app.StateRunning
	StateClosing = app.StateClosing
	StateClosed  = app.StateClosed
)

// Errors returned by the public API. Check with errors.Is.
var (
	ErrClosed         = domain.ErrClosed
	ErrQueueFull      = domain.ErrQueueFull
	ErrCodeOutOfRange = domain.ErrCodeOutOfRange
	ErrInvalidConfig  = domain.ErrInvalidConfig
)

// Dispatcher delivers trigger codes to an EEG recorder over a serial link
// without blocking the caller. SendPortcode enqueues and returns immediately;
// a background sender goroutine drains the queue, OR-combines codes that
// arrived within the same drain window, and writes one byte per combined
// batch.
//
// A Dispatcher is safe for concurrent use by multiple goroutines.
type Dispatcher struct {
	core      *app.Dispatcher
	transport ports.Transport
	logger    ports.Logger
	emulated  bool
}

// New creates a Dispatcher and starts its sender goroutine.
//
// The serial port named in cfg is opened unless a transport is injected via
// WithTransport. When the port cannot be opened and cfg.EmulateOnFail is set,
// codes are logged instead of sent so the stimulus program can be developed
// without the recording hardware; otherwise the open error is returned and no
// Dispatcher is produced.
func New(cfg Config, opts ...Option) (*Dispatcher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	emulated := false
	transport := o.transport
	if transport == nil {
		t, err := serialport.Open(serialport.Config{
			Port:     cfg.PortName,
			BaudRate: cfg.BaudRate,
		})
		if err != nil {
			if !cfg.EmulateOnFail {
				return nil, err
			}
			logger.Warn("could not open serial port, emulating portcodes on the log",
				ports.String("port", cfg.PortName),
				ports.Err(err),
			)
			transport = console.New(logger)
			emulated = true
		} else {
			transport = t
		}
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	lifecycle := app.NewLifecycle(logger, emitter)

	core := app.NewDispatcher(app.Config{
		QueueSize:      cfg.QueueSize,
		WriteTimeout:   cfg.WriteTimeout,
		WriteRetries:   cfg.WriteRetries,
		BackoffInitial: cfg.BackoffInitial,
		BackoffMax:     cfg.BackoffMax,
	}, transport, logger, emitter, lifecycle)

	logger.Info("dispatcher started",
		ports.String("port", cfg.PortName),
		ports.Bool("emulated", emulated),
		ports.Int("queue_size", cfg.QueueSize),
	)

	return &Dispatcher{
		core:      core,
		transport: transport,
		logger:    logger,
		emulated:  emulated,
	}, nil
}

// SendPortcode enqueues a trigger code without blocking.
//
// The usual convention is one power of two per event (1, 2, 4, ..., 128) so
// codes arriving close together stay distinguishable after they are combined
// into one byte. Code 0 requests a flush: codes submitted before it finish
// transmitting before anything submitted after it is processed, and no byte
// is written for the flush itself.
//
// Returns ErrCodeOutOfRange for codes outside 0..255, ErrClosed once Close()
// has begun, and ErrQueueFull when the queue is saturated.
func (d *Dispatcher) SendPortcode(code int) error {
	if code < 0 || code > domain.MaxCode {
		return fmt.Errorf("%w: got %d", domain.ErrCodeOutOfRange, code)
	}
	return d.core.Enqueue(domain.Code(code))
}

// Flush blocks until every code submitted before the call has been written
// to the transport (or dropped after retry exhaustion). With nothing pending
// it returns promptly without issuing a write.
func (d *Dispatcher) Flush() error {
	done, err := d.core.EnqueueBarrier()
	if err != nil {
		return err
	}
	<-done
	return nil
}

// Close drains the queue, stops the sender goroutine, and closes the
// transport. Blocks until shutdown completes. Idempotent: a second call is a
// no-op returning the first call's result. After Close, SendPortcode and
// Flush fail with ErrClosed.
func (d *Dispatcher) Close() error {
	return d.core.Close()
}

// State returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (d *Dispatcher) State() State {
	return d.core.State()
}

// Emulated reports whether the dispatcher fell back to the emulation
// transport because the serial port could not be opened.
func (d *Dispatcher) Emulated() bool {
	return d.emulated
}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnWrite(value byte, codes, attempts int, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnWrite(WriteEvent{
		Value:    value,
		Codes:    codes,
		Attempts: attempts,
		Duration: duration,
	})
}

func (e *eventEmitterWrapper) OnWriteError(err error, value byte, dropped bool) {
	if e.handler == nil {
		return
	}
	e.handler.OnWriteError(WriteErrorEvent{
		Error:   err,
		Value:   value,
		Dropped: dropped,
	})
}
