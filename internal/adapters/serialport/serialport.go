// Package serialport implements ports.Transport on a real serial device
// using go.bug.st/serial.
package serialport

import (
	"context"
	"fmt"
	"sync"

	"go.bug.st/serial"

	"github.com/mulimoen/portcodes/internal/ports"
)

// Config holds configuration for opening a serial port.
type Config struct {
	// Port is the device identifier, e.g. "/dev/ttyUSB0" or "COM3".
	Port string

	// BaudRate for the link. The trigger convention only needs one byte per
	// event, so even slow rates are fine.
	BaudRate int
}

// Transport is a serial port transport. It is owned by a single writer; the
// dispatcher's sender goroutine is the only caller of Write.
type Transport struct {
	port      serial.Port
	name      string
	closeOnce sync.Once
	closeErr  error
}

var _ ports.Transport = (*Transport)(nil)

// Open opens the serial device described by cfg.
func Open(cfg Config) (*Transport, error) {
	mode := &serial.Mode{BaudRate: cfg.BaudRate}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	return &Transport{port: port, name: cfg.Port}, nil
}

// Write transmits a single byte and drains the OS output buffer so the code
// is on the wire when Write returns. The context bounds the call; serial
// writes of one byte essentially never block, but a wedged driver must not
// stall the sender forever.
func (t *Transport) Write(ctx context.Context, b byte) error {
	errc := make(chan error, 1)
	go func() {
		if _, err := t.port.Write([]byte{b}); err != nil {
			errc <- fmt.Errorf("serial write: %w", err)
			return
		}
		errc <- t.port.Drain()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return fmt.Errorf("serial write %s: %w", t.name, ctx.Err())
	}
}

// Close releases the serial device. Safe to call multiple times.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.port.Close()
	})
	return t.closeErr
}

// Name returns the device identifier the transport was opened with.
func (t *Transport) Name() string {
	return t.name
}

// List returns the serial port identifiers present on the system.
func List() ([]string, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return names, nil
}
