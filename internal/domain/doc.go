// Package domain contains the core value types and error definitions for the
// portcodes dispatcher: trigger codes, the OR-combined pending batch, and the
// sentinel errors surfaced through the public API.
//
// The package is dependency-free. Application logic lives in internal/app and
// infrastructure behind the interfaces in internal/ports.
package domain
