// Package ports defines the interfaces that connect the dispatcher core to
// infrastructure adapters.
//
// The application layer (internal/app) depends only on these interfaces.
// Concrete implementations live in internal/adapters: a serial port transport,
// a console emulation transport, and logging backends.
//
//   - [Transport]: the serial byte sink carrying combined trigger codes
//   - [Logger]: structured logging abstraction
//
// This separation keeps the queue/multiplexing logic testable against mock
// transports and lets the CLI fall back to emulation when no hardware is
// present.
package ports
