package domain

// FlushCode is the reserved code value requesting a flush barrier.
// It is never written to the wire.
const FlushCode Code = 0

// MaxCode is the largest code that fits in a single wire byte.
const MaxCode = 255

// Code is a trigger value destined for the EEG recorder. The usual convention
// is a single power of two per event (1, 2, 4, ..., 128) so that codes
// arriving in the same drain window remain distinguishable after they are
// OR-combined, but any value in 1..255 is accepted.
type Code byte

// IsFlush reports whether the code is the flush barrier marker.
func (c Code) IsFlush() bool {
	return c == FlushCode
}

// Batch accumulates the codes that arrived since the last physical write.
// The zero value is an empty batch ready for use.
type Batch struct {
	value byte
	count int
}

// Add merges a code into the batch.
func (b *Batch) Add(c Code) {
	b.value |= byte(c)
	b.count++
}

// Value returns the combined wire byte for the batch.
func (b *Batch) Value() byte {
	return b.value
}

// Len returns the number of codes merged into the batch.
func (b *Batch) Len() int {
	return b.count
}

// Empty returns true if no codes have been added since the last Reset.
func (b *Batch) Empty() bool {
	return b.count == 0
}

// Reset clears the batch for the next drain window.
func (b *Batch) Reset() {
	b.value = 0
	b.count = 0
}
