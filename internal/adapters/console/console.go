// Package console implements ports.Transport by logging codes instead of
// writing to hardware. It backs the emulate-on-fail mode: when the serial
// device cannot be opened, trigger codes are still observable during
// development of the stimulus program.
package console

import (
	"context"
	"fmt"

	"github.com/mulimoen/portcodes/internal/ports"
)

// Transport logs every code that would have gone to the wire.
type Transport struct {
	logger ports.Logger
}

var _ ports.Transport = (*Transport)(nil)

// New creates an emulation transport logging through the given logger.
func New(logger ports.Logger) *Transport {
	return &Transport{logger: logger}
}

// Write logs the code with its bit pattern.
func (t *Transport) Write(_ context.Context, b byte) error {
	t.logger.Info("portcode emulate",
		ports.Int("code", int(b)),
		ports.String("bits", fmt.Sprintf("%08b", b)),
	)
	return nil
}

// Close is a no-op; there is no device to release.
func (t *Transport) Close() error {
	return nil
}
