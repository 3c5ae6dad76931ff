package trigger

import (
	logAdapter "github.com/mulimoen/portcodes/internal/adapters/log"
	"github.com/mulimoen/portcodes/internal/ports"
	"github.com/mulimoen/portcodes/pkg/log"
)

// Logger is the interface for structured logging.
type Logger = log.Logger

// Transport is the byte sink the dispatcher writes combined codes to.
// Provide one via WithTransport to bypass the serial port, e.g. in tests.
type Transport = ports.Transport

// Option configures optional behavior of a Dispatcher.
type Option func(*options)

// options holds the optional configuration for a Dispatcher instance.
type options struct {
	logger       ports.Logger
	transport    ports.Transport
	eventHandler EventHandler
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger: logAdapter.NewNoopLogger(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTransport injects a custom transport, bypassing the serial port open.
// The dispatcher takes ownership and closes it during Close().
func WithTransport(transport Transport) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// WithEventHandler sets a handler for dispatcher events.
// Events are called synchronously from the sender goroutine; implementations
// should return quickly to avoid delaying trigger writes.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}
