// Package portcodes sends trigger codes from a stimulus-presentation program
// to an EEG recorder over a serial link, without ever blocking the caller's
// rendering loop.
//
// Example usage:
//
//	d, err := portcodes.New(portcodes.Config{PortName: "/dev/ttyUSB0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Close()
//
//	d.SendPortcode(4) // mark stimulus onset
//
// This package re-exports the public API from pkg/trigger; import that
// package directly for the full surface (options, events).
package portcodes

import "github.com/mulimoen/portcodes/pkg/trigger"

// Dispatcher delivers trigger codes asynchronously over a serial link.
type Dispatcher = trigger.Dispatcher

// Config holds the configuration for a Dispatcher.
// The zero value plus PortName is a working configuration.
type Config = trigger.Config

// Option configures optional behavior of a Dispatcher.
type Option = trigger.Option

// New creates a Dispatcher and starts its background sender goroutine.
func New(cfg Config, opts ...Option) (*Dispatcher, error) {
	return trigger.New(cfg, opts...)
}

// Errors returned by the public API. Check with errors.Is.
var (
	ErrClosed         = trigger.ErrClosed
	ErrQueueFull      = trigger.ErrQueueFull
	ErrCodeOutOfRange = trigger.ErrCodeOutOfRange
)
