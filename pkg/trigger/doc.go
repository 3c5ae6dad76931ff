// Package trigger provides an embeddable dispatcher for sending EEG trigger
// codes (portcodes) over a serial link without blocking the caller.
//
// Stimulus-presentation programs must never miss a rendering frame waiting on
// serial I/O, so SendPortcode only enqueues: a dedicated background goroutine
// owns the serial transport and performs the physical writes. Codes that
// arrive while a write is in progress are combined into a single byte with
// bitwise OR, which is why the convention is one power of two per event.
//
// # Basic Usage
//
//	d, err := trigger.New(trigger.Config{PortName: "/dev/ttyUSB0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Close()
//
//	d.SendPortcode(4)  // mark stimulus onset, returns immediately
//
// # Flush Barriers
//
// Sending code 0 requests a flush: everything submitted before it finishes
// transmitting before anything submitted after it is processed. [Dispatcher.Flush]
// is the blocking form, returning once the barrier has been passed.
//
// # Emulation
//
// With Config.EmulateOnFail set, a dispatcher whose serial port cannot be
// opened logs codes instead of failing construction, so experiments can be
// developed away from the recording hardware.
//
// # Events
//
// Implement [EventHandler] and pass it via [WithEventHandler] to observe
// writes, write failures (including batches dropped after retry exhaustion),
// and lifecycle transitions. Handlers run synchronously on the sender
// goroutine and should return quickly.
package trigger
