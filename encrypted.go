package blockstore

import (
	"bytes"
	"fmt"
)

// FormatVersionHeaderSize is the length of the format version header that
// prefixes every physical block written by an EncryptedBlockStore.
const FormatVersionHeaderSize = 2

// formatVersionHeader is the fixed 2-byte prefix of every physical block:
// format version 1, encoded little-endian. The byte order is pinned
// explicitly so stores written on different architectures stay compatible.
var formatVersionHeader = [FormatVersionHeaderSize]byte{0x01, 0x00}

// EncryptedBlockStore implements BlockStore by transparently encrypting
// every block before handing it to an underlying block store, and
// decrypting and format-validating on the way back.
//
// Physical block layout:
//
//	offset 0:  format version header (2 bytes)
//	offset 2:  cipher nonce
//	then:      ciphertext payload
//	then:      authentication tag
//
// The store holds no per-block state; both the cipher engine and the base
// store handle are read-only for its lifetime, so concurrent calls on
// different block IDs need no coordination here. Concurrent calls targeting
// the same ID are coordinated by the base store, if at all.
type EncryptedBlockStore struct {
	base   BlockStore
	engine CipherEngine
}

var _ BlockStore = (*EncryptedBlockStore)(nil)

// NewEncryptedBlockStore creates an encrypted block store wrapping the base
// store.
func NewEncryptedBlockStore(base BlockStore, engine CipherEngine) (*EncryptedBlockStore, error) {
	if base == nil {
		return nil, ErrNilBaseStore
	}
	if engine == nil {
		return nil, ErrNilCipherEngine
	}
	return &EncryptedBlockStore{base: base, engine: engine}, nil
}

// Load reads and decrypts the block with the given ID. A block missing from
// the base store is reported as absent, not as an error. A block that does
// not begin with the format version header fails with a CorruptBlockError;
// a block that fails authentication fails with ErrAuthFailed. No partial
// plaintext is ever returned.
func (s *EncryptedBlockStore) Load(id BlockID) ([]byte, bool, error) {
	loaded, found, err := s.base.Load(id)
	if err != nil {
		return nil, false, &StoreError{Operation: "load", ID: id, Err: err}
	}
	if !found {
		return nil, false, nil
	}

	ciphertext, err := checkAndStripHeader(id, loaded)
	if err != nil {
		return nil, false, err
	}

	plaintext, err := s.engine.Decrypt(ciphertext)
	if err != nil {
		return nil, false, err
	}
	return plaintext, true, nil
}

// Store encrypts the buffer in place, prepends the format version header
// into the reserved prefix space and forwards the result to the base
// store's own write path. The buffer must have been obtained from Allocate;
// it is consumed.
func (s *EncryptedBlockStore) Store(id BlockID, data *GrowableBuffer) error {
	if err := s.encrypt(data); err != nil {
		return err
	}
	if err := s.base.Store(id, data); err != nil {
		return &StoreError{Operation: "store", ID: id, Err: err}
	}
	return nil
}

// TryCreate is like Store but only writes if no block with the ID exists
// yet, reporting whether it was created.
func (s *EncryptedBlockStore) TryCreate(id BlockID, data *GrowableBuffer) (bool, error) {
	if err := s.encrypt(data); err != nil {
		return false, err
	}
	created, err := s.base.TryCreate(id, data)
	if err != nil {
		return false, &StoreError{Operation: "try-create", ID: id, Err: err}
	}
	return created, nil
}

// Allocate returns a buffer whose window is exactly size bytes and whose
// prefix reserve covers this layer's header and cipher overhead plus
// everything the base store's own layers need. The whole write path then
// runs on this single allocation.
func (s *EncryptedBlockStore) Allocate(size int) *GrowableBuffer {
	return allocateBuffer(s.RequiredPrefixBytesTotal(), size)
}

// RequiredPrefixBytesSelf returns the prefix bytes this layer writes: the
// format version header plus the cipher's ciphertext overhead.
func (s *EncryptedBlockStore) RequiredPrefixBytesSelf() int {
	return FormatVersionHeaderSize + s.engine.CiphertextOverhead()
}

// RequiredPrefixBytesTotal returns the prefix bytes this layer and the base
// store together write.
func (s *EncryptedBlockStore) RequiredPrefixBytesTotal() int {
	return s.base.RequiredPrefixBytesTotal() + s.RequiredPrefixBytesSelf()
}

// Remove deletes the block with the given ID from the base store.
func (s *EncryptedBlockStore) Remove(id BlockID) (bool, error) {
	return s.base.Remove(id)
}

// NumBlocks returns the number of blocks in the base store.
func (s *EncryptedBlockStore) NumBlocks() (uint64, error) {
	return s.base.NumBlocks()
}

// EstimateNumFreeBytes returns the base store's free space estimate.
func (s *EncryptedBlockStore) EstimateNumFreeBytes() (uint64, error) {
	return s.base.EstimateNumFreeBytes()
}

// AllBlocks returns the IDs of all blocks in the base store.
func (s *EncryptedBlockStore) AllBlocks() ([]BlockID, error) {
	return s.base.AllBlocks()
}

// BlockSizeFromPhysicalBlockSize converts a physical block size into the
// maximum plaintext size that fits in it.
func (s *EncryptedBlockStore) BlockSizeFromPhysicalBlockSize(physicalBlockSize uint64) (uint64, error) {
	if physicalBlockSize < FormatVersionHeaderSize {
		return 0, &ConfigurationError{
			PhysicalBlockSize: physicalBlockSize,
			MinRequired:       FormatVersionHeaderSize,
			Message:           "too small to hold even the format version header",
		}
	}
	overhead := uint64(s.engine.CiphertextOverhead())
	if physicalBlockSize < FormatVersionHeaderSize+overhead {
		return 0, &ConfigurationError{
			PhysicalBlockSize: physicalBlockSize,
			MinRequired:       FormatVersionHeaderSize + overhead,
			Message:           "too small to additionally hold the ciphertext overhead",
		}
	}
	return physicalBlockSize - FormatVersionHeaderSize - overhead, nil
}

// encrypt runs the in-place write transformation: the cipher consumes
// exactly its overhead from the prefix reserve, then the window grows
// backward by the header size and receives the format version header. What
// remains declared afterwards is exactly the reserve the base store's own
// layers asked for.
func (s *EncryptedBlockStore) encrypt(data *GrowableBuffer) error {
	if err := s.engine.Encrypt(data); err != nil {
		return fmt.Errorf("failed to encrypt block: %w", err)
	}
	prependHeader(data)
	return nil
}

func prependHeader(data *GrowableBuffer) {
	data.GrowWindow(FormatVersionHeaderSize, 0)
	copy(data.Bytes()[:FormatVersionHeaderSize], formatVersionHeader[:])
}

func checkAndStripHeader(id BlockID, data []byte) ([]byte, error) {
	if len(data) < FormatVersionHeaderSize || !bytes.Equal(data[:FormatVersionHeaderSize], formatVersionHeader[:]) {
		found := data
		if len(found) > FormatVersionHeaderSize {
			found = found[:FormatVersionHeaderSize]
		}
		return nil, &CorruptBlockError{
			ID:       id,
			Expected: formatVersionHeader[:],
			Found:    found,
			Message:  "missing format version header",
		}
	}
	return data[FormatVersionHeaderSize:], nil
}
