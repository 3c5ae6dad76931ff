package trigger_test

import (
	"fmt"

	"github.com/mulimoen/portcodes/pkg/trigger"
)

// ExampleNew demonstrates sending trigger codes from a stimulus program.
func ExampleNew() {
	cfg := trigger.Config{
		PortName:      "/dev/ttyUSB0",
		EmulateOnFail: true, // log codes when no recorder is attached
	}

	d, err := trigger.New(cfg)
	if err != nil {
		fmt.Printf("failed to create dispatcher: %v\n", err)
		return
	}

	// Mark a stimulus onset; returns immediately, the display loop is
	// never blocked on serial I/O.
	_ = d.SendPortcode(4)

	// Barrier: wait until the code is on the wire before the next trial.
	_ = d.Flush()

	// Drains pending codes and releases the port.
	if err := d.Close(); err != nil {
		fmt.Printf("shutdown error: %v\n", err)
		return
	}

	fmt.Println(d.State())
	// Output: Closed
}

// Example_withEventHandler demonstrates observing dispatcher events.
func Example_withEventHandler() {
	handler := &writeLogger{}

	d, err := trigger.New(
		trigger.Config{PortName: "/dev/ttyUSB0", EmulateOnFail: true},
		trigger.WithEventHandler(handler),
	)
	if err != nil {
		fmt.Printf("failed to create dispatcher: %v\n", err)
		return
	}
	defer d.Close()

	_ = d.SendPortcode(8)
}

// writeLogger implements trigger.EventHandler for write notifications.
type writeLogger struct {
	trigger.BaseEventHandler // embed for no-op defaults
}

func (h *writeLogger) OnWriteError(event trigger.WriteErrorEvent) {
	if event.Dropped {
		fmt.Printf("trigger lost: %v\n", event.Error)
	}
}
