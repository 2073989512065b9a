package blockstore

// CipherSuite represents the encryption algorithm to use
type CipherSuite uint8

const (
	// CipherAuto automatically selects the best cipher based on hardware capabilities
	CipherAuto CipherSuite = iota
	// CipherAES256GCM uses AES-256 with Galois/Counter Mode
	CipherAES256GCM
	// CipherAES128GCM uses AES-128 with Galois/Counter Mode
	CipherAES128GCM
	// CipherXChaCha20Poly1305 uses XChaCha20 with a Poly1305 MAC and an
	// extended 24-byte nonce
	CipherXChaCha20Poly1305
)

// String returns the string representation of the cipher suite
func (c CipherSuite) String() string {
	switch c {
	case CipherAuto:
		return "auto"
	case CipherAES256GCM:
		return "aes-256-gcm"
	case CipherAES128GCM:
		return "aes-128-gcm"
	case CipherXChaCha20Poly1305:
		return "xchacha20-poly1305"
	default:
		return "unknown"
	}
}

// KeySize returns the key size in bytes required by the cipher suite, or 0
// for an unknown suite.
func (c CipherSuite) KeySize() int {
	switch c {
	case CipherAuto, CipherAES256GCM, CipherXChaCha20Poly1305:
		return 32
	case CipherAES128GCM:
		return 16
	default:
		return 0
	}
}

// BlockReader provides read access to a block store.
type BlockReader interface {
	// Load returns the content of the block with the given ID. A missing
	// block is reported as found == false, not as an error.
	Load(id BlockID) (data []byte, found bool, err error)

	// NumBlocks returns the number of blocks currently stored.
	NumBlocks() (uint64, error)

	// EstimateNumFreeBytes estimates how many more payload bytes the store
	// can accept. Backends without a meaningful bound report a very large
	// value.
	EstimateNumFreeBytes() (uint64, error)

	// BlockSizeFromPhysicalBlockSize converts a physical (stored) block
	// size into the maximum payload size that fits in it, accounting for
	// every header this store writes. It fails with a ConfigurationError
	// if physicalBlockSize cannot hold even the headers.
	BlockSizeFromPhysicalBlockSize(physicalBlockSize uint64) (uint64, error)

	// AllBlocks returns the IDs of all stored blocks. The order is
	// unspecified and the snapshot is not restartable mid-iteration.
	AllBlocks() ([]BlockID, error)
}

// BlockDeleter provides delete access to a block store.
type BlockDeleter interface {
	// Remove deletes the block with the given ID and reports whether it
	// existed before removal.
	Remove(id BlockID) (bool, error)
}

// BlockWriter is the optimized write protocol of a block store. Callers
// obtain a buffer from Allocate, fill its window with the payload, and hand
// it to Store or TryCreate. Every layer of a composed store then writes its
// header into the buffer's pre-sized prefix reserve in place, with no
// further allocation or copying through the whole stack.
type BlockWriter interface {
	// RequiredPrefixBytesSelf returns how many prefix bytes this layer
	// itself writes in front of the payload.
	RequiredPrefixBytesSelf() int

	// RequiredPrefixBytesTotal returns how many prefix bytes this layer
	// and all layers below it write in front of the payload. This is the
	// reserve Allocate provisions.
	RequiredPrefixBytesTotal() int

	// Allocate returns a buffer whose active window is exactly size bytes
	// and whose declared prefix reserve is RequiredPrefixBytesTotal.
	Allocate(size int) *GrowableBuffer

	// Store writes the block, overwriting any previous content under the
	// same ID. The buffer must have been obtained from Allocate and its
	// window must already contain the payload. The buffer is consumed.
	Store(id BlockID, data *GrowableBuffer) error

	// TryCreate is like Store but only writes if no block with the ID
	// exists yet, reporting whether it was created. The buffer is
	// consumed either way.
	TryCreate(id BlockID, data *GrowableBuffer) (bool, error)
}

// BlockStore is a complete block store.
type BlockStore interface {
	BlockReader
	BlockWriter
	BlockDeleter
}

// StoreBytes stores a plain byte slice, allocating and filling a correctly
// reserved buffer on behalf of the caller. It is the convenience path for
// callers that do not build their payload in place.
func StoreBytes(s BlockWriter, id BlockID, data []byte) error {
	buf := s.Allocate(len(data))
	copy(buf.Bytes(), data)
	return s.Store(id, buf)
}

// TryCreateBytes is the TryCreate counterpart of StoreBytes.
func TryCreateBytes(s BlockWriter, id BlockID, data []byte) (bool, error) {
	buf := s.Allocate(len(data))
	copy(buf.Bytes(), data)
	return s.TryCreate(id, buf)
}

// allocateBuffer builds the buffer every store's Allocate hands out: one
// allocation of prefixBytes+size, with the window shrunk to the payload so
// the declared prefix reserve equals prefixBytes.
func allocateBuffer(prefixBytes, size int) *GrowableBuffer {
	buf := NewGrowableBuffer(prefixBytes + size)
	buf.ShrinkWindow(prefixBytes, 0)
	return buf
}
