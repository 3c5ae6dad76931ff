// Package app implements the dispatcher core: the request queue, the single
// sender goroutine that owns the transport, the flush/multiplexing state
// machine, and the Running/Closing/Closed lifecycle.
package app
