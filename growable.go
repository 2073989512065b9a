package blockstore

import "fmt"

// GrowableBuffer is a Buffer that additionally tracks a declared lower bound
// on its prefix and suffix reserves. Every window operation re-validates the
// bound, so code that receives a GrowableBuffer declared with P prefix bytes
// may write a P-byte header in place without checking or copying first.
//
// This is the runtime rendition of a capacity proof that systems languages
// express with value-level generic parameters: where those produce a compile
// error, GrowableBuffer panics. Violating a declared capacity is always a
// caller bug, never a data-dependent condition, which is why the window
// operations panic rather than return errors. Boundary conversions that
// depend on runtime data (WrapBuffer) return errors instead.
type GrowableBuffer struct {
	data        *Buffer
	prefixBytes int // declared lower bound on data.AvailablePrefixBytes()
	suffixBytes int // declared lower bound on data.AvailableSuffixBytes()
}

// NewGrowableBuffer allocates a zeroed buffer of the given size with zero
// declared reserves.
func NewGrowableBuffer(size int) *GrowableBuffer {
	return &GrowableBuffer{data: NewBuffer(size)}
}

// NewGrowableBufferFromBytes wraps an existing byte slice with zero declared
// reserves. The buffer takes ownership of b.
func NewGrowableBufferFromBytes(b []byte) *GrowableBuffer {
	return &GrowableBuffer{data: NewBufferFromBytes(b)}
}

// WrapBuffer converts a raw Buffer into a GrowableBuffer declaring the given
// reserves. It fails unless the declared reserves match the buffer's actual
// reserves exactly; a buffer with more reserve than declared must first be
// re-windowed by the caller so that no capacity is silently lost.
func WrapBuffer(buf *Buffer, prefixBytes, suffixBytes int) (*GrowableBuffer, error) {
	if buf.AvailablePrefixBytes() != prefixBytes {
		return nil, fmt.Errorf("blockstore: buffer has %d prefix bytes available but %d were declared",
			buf.AvailablePrefixBytes(), prefixBytes)
	}
	if buf.AvailableSuffixBytes() != suffixBytes {
		return nil, fmt.Errorf("blockstore: buffer has %d suffix bytes available but %d were declared",
			buf.AvailableSuffixBytes(), suffixBytes)
	}
	return &GrowableBuffer{data: buf, prefixBytes: prefixBytes, suffixBytes: suffixBytes}, nil
}

// Len returns the length of the active window.
func (g *GrowableBuffer) Len() int {
	return g.data.Len()
}

// Bytes returns the active window. The slice aliases the buffer's storage
// and is invalidated by subsequent window operations.
func (g *GrowableBuffer) Bytes() []byte {
	return g.data.Bytes()
}

// AvailablePrefixBytes returns the declared prefix reserve.
func (g *GrowableBuffer) AvailablePrefixBytes() int {
	return g.prefixBytes
}

// AvailableSuffixBytes returns the declared suffix reserve.
func (g *GrowableBuffer) AvailableSuffixBytes() int {
	return g.suffixBytes
}

// ShrinkWindow removes deleteFront bytes from the front of the active window
// and deleteBack bytes from its back. The removed bytes join the reserves,
// so the declared capacities increase by exactly the deleted amounts.
// ShrinkWindow panics if the window does not hold deleteFront+deleteBack
// bytes.
func (g *GrowableBuffer) ShrinkWindow(deleteFront, deleteBack int) {
	g.data.Shrink(deleteFront, deleteBack)
	g.prefixBytes += deleteFront
	g.suffixBytes += deleteBack
	g.checkInvariant()
}

// GrowWindow expands the active window by addFront bytes of prefix reserve
// and addBack bytes of suffix reserve, decreasing the declared capacities
// accordingly. This is the operation used to write a header into
// pre-reserved space with no additional allocation. GrowWindow panics if
// either declared capacity is smaller than the requested growth.
func (g *GrowableBuffer) GrowWindow(addFront, addBack int) {
	if addFront < 0 || addFront > g.prefixBytes {
		panic(fmt.Sprintf("blockstore: tried to grow the window by %d prefix bytes but only %d are declared",
			addFront, g.prefixBytes))
	}
	if addBack < 0 || addBack > g.suffixBytes {
		panic(fmt.Sprintf("blockstore: tried to grow the window by %d suffix bytes but only %d are declared",
			addBack, g.suffixBytes))
	}
	if err := g.data.Grow(addFront, addBack); err != nil {
		// Unreachable while the invariant holds: the actual reserve is
		// always at least the declared capacity checked above.
		panic(err)
	}
	g.prefixBytes -= addFront
	g.suffixBytes -= addBack
	g.checkInvariant()
}

// Extract unwraps the underlying Buffer, giving up the tracked capacity
// guarantee. The GrowableBuffer must not be used afterwards.
func (g *GrowableBuffer) Extract() *Buffer {
	buf := g.data
	g.data = nil
	return buf
}

func (g *GrowableBuffer) checkInvariant() {
	if g.data.AvailablePrefixBytes() < g.prefixBytes {
		panic(fmt.Sprintf("blockstore: declared %d prefix bytes but only %d exist",
			g.prefixBytes, g.data.AvailablePrefixBytes()))
	}
	if g.data.AvailableSuffixBytes() < g.suffixBytes {
		panic(fmt.Sprintf("blockstore: declared %d suffix bytes but only %d exist",
			g.suffixBytes, g.data.AvailableSuffixBytes()))
	}
}
