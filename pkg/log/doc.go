// Package log provides a structured logging abstraction for the portcodes
// library.
//
// The [Logger] interface decouples the dispatcher from any concrete logging
// backend. [ZerologAdapter] wraps zerolog for console output and
// [NoopLogger] discards everything, which is the library default so embedding
// applications stay silent unless they opt in.
package log
