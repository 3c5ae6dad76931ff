package trigger

import (
	"fmt"
	"time"

	"github.com/mulimoen/portcodes/internal/domain"
)

// Default configuration values.
const (
	DefaultBaudRate     = 9600
	DefaultQueueSize    = 64
	DefaultWriteTimeout = time.Second
	DefaultWriteRetries = 3
)

// Config holds the configuration for a trigger Dispatcher.
// Use the zero value plus PortName, or fill in fields explicitly;
// SetDefaults fills anything left unset.
type Config struct {
	// PortName is the serial device identifier, e.g. "/dev/ttyUSB0" or "COM3".
	PortName string

	// BaudRate for the serial link.
	BaudRate int

	// QueueSize is the request queue capacity. SendPortcode never blocks;
	// when the queue is full it returns ErrQueueFull instead.
	QueueSize int

	// WriteTimeout bounds a single transport write so a hung device cannot
	// stall the sender.
	WriteTimeout time.Duration

	// WriteRetries is how many times a failed write is retried with the same
	// combined byte before the batch is dropped.
	WriteRetries int

	// BackoffInitial and BackoffMax control the delay between write retries.
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// EmulateOnFail falls back to logging codes when the serial port cannot
	// be opened, instead of failing construction. Handy while developing the
	// stimulus program away from the recording hardware.
	EmulateOnFail bool
}

// SetDefaults fills in default values for unset fields.
func (c *Config) SetDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.WriteRetries == 0 {
		c.WriteRetries = DefaultWriteRetries
	}
	if c.BackoffInitial == 0 {
		c.BackoffInitial = 5 * time.Millisecond
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = 100 * time.Millisecond
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.BaudRate < 0 {
		return fmt.Errorf("%w: baud rate must be positive", domain.ErrInvalidConfig)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: queue size must be positive", domain.ErrInvalidConfig)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("%w: write timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.WriteRetries < 0 {
		return fmt.Errorf("%w: write retries must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}
