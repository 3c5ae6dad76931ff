package ports

import "context"

// Transport is the byte sink carrying trigger codes to the EEG recorder,
// usually a serial link emulating a parallel port.
//
// After the dispatcher is constructed, the transport is owned exclusively by
// the sender goroutine; implementations never see concurrent writes. The
// context carries the bounded per-write timeout so a hung device cannot stall
// the sender forever.
type Transport interface {
	// Write transmits a single combined code byte.
	Write(ctx context.Context, b byte) error

	// Close releases the underlying device. Called exactly once, after the
	// sender goroutine has exited.
	Close() error
}
