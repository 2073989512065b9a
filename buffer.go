package blockstore

import "fmt"

// Buffer is a single owned allocation divided into three zones: an unused
// prefix reserve, the active data window, and an unused suffix reserve.
// The reserves exist so that layered binary formats can write their headers
// in place without reallocating or copying the payload.
//
// Invariant: prefix reserve + window + suffix reserve always sum to the
// total allocation.
type Buffer struct {
	storage []byte
	begin   int // first byte of the active window
	end     int // one past the last byte of the active window
}

// NewBuffer allocates a zeroed buffer of the given size. The active window
// initially covers the whole allocation, so both reserves are empty.
func NewBuffer(size int) *Buffer {
	if size < 0 {
		panic(fmt.Sprintf("blockstore: cannot allocate a buffer of %d bytes", size))
	}
	return &Buffer{storage: make([]byte, size), begin: 0, end: size}
}

// NewBufferFromBytes wraps an existing byte slice. The buffer takes
// ownership of b; callers must not retain aliases to it.
func NewBufferFromBytes(b []byte) *Buffer {
	return &Buffer{storage: b, begin: 0, end: len(b)}
}

// Len returns the length of the active window.
func (b *Buffer) Len() int {
	return b.end - b.begin
}

// Bytes returns the active window. The slice aliases the buffer's storage
// and is invalidated by subsequent Shrink or Grow calls.
func (b *Buffer) Bytes() []byte {
	return b.storage[b.begin:b.end]
}

// AvailablePrefixBytes returns the size of the unused reserve in front of
// the active window.
func (b *Buffer) AvailablePrefixBytes() int {
	return b.begin
}

// AvailableSuffixBytes returns the size of the unused reserve behind the
// active window.
func (b *Buffer) AvailableSuffixBytes() int {
	return len(b.storage) - b.end
}

// Shrink removes deleteFront bytes from the front of the active window and
// deleteBack bytes from its back. The bytes are not discarded; they become
// part of the prefix and suffix reserves and can be reclaimed with Grow.
// Shrink panics if the window does not hold deleteFront+deleteBack bytes.
func (b *Buffer) Shrink(deleteFront, deleteBack int) {
	if deleteFront < 0 || deleteBack < 0 || deleteFront+deleteBack > b.Len() {
		panic(fmt.Sprintf("blockstore: tried to delete %d + %d bytes from a window of %d bytes",
			deleteFront, deleteBack, b.Len()))
	}
	b.begin += deleteFront
	b.end -= deleteBack
}

// Grow expands the active window by reclaiming addFront bytes from the
// prefix reserve and addBack bytes from the suffix reserve. It fails if
// either reserve is too small.
func (b *Buffer) Grow(addFront, addBack int) error {
	if addFront < 0 || addBack < 0 {
		return fmt.Errorf("blockstore: cannot grow a window by %d + %d bytes", addFront, addBack)
	}
	if addFront > b.AvailablePrefixBytes() {
		return fmt.Errorf("blockstore: tried to grow the window by %d prefix bytes but only %d are reserved",
			addFront, b.AvailablePrefixBytes())
	}
	if addBack > b.AvailableSuffixBytes() {
		return fmt.Errorf("blockstore: tried to grow the window by %d suffix bytes but only %d are reserved",
			addBack, b.AvailableSuffixBytes())
	}
	b.begin -= addFront
	b.end += addBack
	return nil
}
