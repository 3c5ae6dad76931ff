package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mulimoen/portcodes/internal/domain"
	"github.com/mulimoen/portcodes/internal/ports"
)

// Config contains configuration for the dispatcher core.
type Config struct {
	// QueueSize is the capacity of the request queue. Enqueue never blocks;
	// a full queue rejects the request instead.
	QueueSize int

	// WriteTimeout bounds a single transport write.
	WriteTimeout time.Duration

	// WriteRetries is how many times a failed write is retried before the
	// batch is dropped.
	WriteRetries int

	// BackoffInitial and BackoffMax control the retry backoff.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// WriteEventEmitter is called from the sender goroutine on write outcomes.
type WriteEventEmitter interface {
	OnWrite(value byte, codes int, attempts int, duration time.Duration)
	OnWriteError(err error, value byte, dropped bool)
}

// request is one entry in the queue. A flush barrier carries an optional done
// channel, closed once the sender has passed the synchronization point.
type request struct {
	code domain.Code
	done chan struct{}
}

// Dispatcher owns the request queue and the single sender goroutine that
// drains it into the transport.
//
// Codes enqueued while the sender is busy with a write are OR-combined into
// one wire byte on the next drain pass. A flush marker (code 0) splits the
// pass: everything before it is written first, everything after it starts a
// new batch. The transport is touched by the sender goroutine only.
type Dispatcher struct {
	config    Config
	transport ports.Transport
	logger    ports.Logger
	emitter   WriteEventEmitter
	lifecycle *Lifecycle

	queue   chan request
	closing chan struct{}

	// mu orders enqueues against the Closing transition so no request can
	// slip into the queue after the final drain has been signalled.
	mu        sync.RWMutex
	closeOnce sync.Once
	closeErr  error
}

// NewDispatcher creates a dispatcher and starts its sender goroutine.
// The returned dispatcher is Running and takes ownership of the transport.
func NewDispatcher(config Config, transport ports.Transport, logger ports.Logger, emitter WriteEventEmitter, lifecycle *Lifecycle) *Dispatcher {
	d := &Dispatcher{
		config:    config,
		transport: transport,
		logger:    logger,
		emitter:   emitter,
		lifecycle: lifecycle,
		queue:     make(chan request, config.QueueSize),
		closing:   make(chan struct{}),
	}

	d.lifecycle.AddWorker()
	go d.run()

	return d
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	return d.lifecycle.State()
}

// Enqueue places a code on the request queue without blocking.
// Code 0 is a flush marker. Returns ErrClosed after Close() has begun and
// ErrQueueFull when the queue is saturated.
func (d *Dispatcher) Enqueue(code domain.Code) error {
	return d.enqueue(request{code: code})
}

// EnqueueBarrier places a flush marker on the queue and returns a channel
// that is closed once the sender has passed the synchronization point.
func (d *Dispatcher) EnqueueBarrier() (<-chan struct{}, error) {
	done := make(chan struct{})
	if err := d.enqueue(request{code: domain.FlushCode, done: done}); err != nil {
		return nil, err
	}
	return done, nil
}

func (d *Dispatcher) enqueue(req request) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.lifecycle.State() != StateRunning {
		return domain.ErrClosed
	}

	select {
	case d.queue <- req:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Close signals the sender to drain and exit, then releases the transport.
// Blocks until shutdown completes or ShutdownTimeout expires. Idempotent:
// subsequent calls return the first call's result without further effect.
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		if err := d.lifecycle.TransitionTo(StateClosing, "Close() called"); err != nil {
			d.mu.Unlock()
			d.closeErr = err
			return
		}
		close(d.closing)
		d.mu.Unlock()

		waitErr := d.lifecycle.WaitWithTimeout(ShutdownTimeout)

		closeErr := d.transport.Close()
		if closeErr != nil {
			d.logger.Error("transport close failed", ports.Err(closeErr))
		}

		_ = d.lifecycle.TransitionTo(StateClosed, "sender drained")

		if waitErr != nil {
			d.closeErr = waitErr
		} else {
			d.closeErr = closeErr
		}
	})
	return d.closeErr
}

// run is the sender goroutine. It exits only when Closing has been signalled
// and the queue is fully drained; write failures never terminate it.
func (d *Dispatcher) run() {
	defer d.lifecycle.WorkerDone()

	for {
		select {
		case req := <-d.queue:
			d.dispatch(req)
		case <-d.closing:
			// Final drain: everything enqueued before Closing is either
			// written or reported dropped.
			for {
				select {
				case req := <-d.queue:
					d.dispatch(req)
				default:
					return
				}
			}
		}
	}
}

// dispatch processes one drain pass: the request that woke the sender plus
// everything immediately available behind it. This is the multiplexing
// window. Codes are walked in FIFO order; a flush marker forces the pending
// batch onto the wire and post-flush codes start a new batch, so nothing
// submitted after a flush can merge into a pre-flush write. An all-flush pass
// issues no write at all.
func (d *Dispatcher) dispatch(first request) {
	var batch domain.Batch

	handle := func(req request) {
		if req.code.IsFlush() {
			if !batch.Empty() {
				d.write(&batch)
			}
			if req.done != nil {
				close(req.done)
			}
			return
		}
		batch.Add(req.code)
	}

	handle(first)
	for {
		select {
		case req := <-d.queue:
			handle(req)
		default:
			if !batch.Empty() {
				d.write(&batch)
			}
			return
		}
	}
}

// write puts the combined batch on the wire, retrying up to the configured
// bound. On exhaustion the batch is dropped and reported; the sender carries
// on so later codes still get a chance to transmit. The batch is reset in
// all cases. A non-empty batch never combines to zero since flush markers are
// handled before this point.
func (d *Dispatcher) write(batch *domain.Batch) {
	value := batch.Value()
	codes := batch.Len()
	batch.Reset()

	bo := newBackoff(d.config.BackoffInitial, d.config.BackoffMax)
	start := time.Now()

	var err error
	for attempt := 1; attempt <= d.config.WriteRetries+1; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.config.WriteTimeout)
		err = d.transport.Write(ctx, value)
		cancel()

		if err == nil {
			d.logger.Debug("portcode written",
				ports.Int("value", int(value)),
				ports.Int("codes", codes),
				ports.Int("attempt", attempt),
			)
			if d.emitter != nil {
				d.emitter.OnWrite(value, codes, attempt, time.Since(start))
			}
			return
		}

		d.logger.Warn("transport write failed",
			ports.Int("value", int(value)),
			ports.Int("attempt", attempt),
			ports.Err(err),
		)
		if d.emitter != nil {
			d.emitter.OnWriteError(err, value, false)
		}

		if attempt <= d.config.WriteRetries {
			bo.Sleep()
		}
	}

	dropErr := fmt.Errorf("%w: value %d after %d attempts: %v",
		domain.ErrWriteRetriesExhausted, value, d.config.WriteRetries+1, err)
	d.logger.Error("dropping portcode batch",
		ports.Int("value", int(value)),
		ports.Int("codes", codes),
		ports.Err(dropErr),
	)
	if d.emitter != nil {
		d.emitter.OnWriteError(dropErr, value, true)
	}
}
