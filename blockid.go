package blockstore

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// BlockIDSize is the length of a block identifier in bytes.
const BlockIDSize = 16

// BlockID is the fixed-length opaque identifier of one stored block.
// It is a value type: equality is byte-exact and it can be used as a map key.
type BlockID [BlockIDSize]byte

// NewRandomBlockID returns a new, randomly generated block ID.
func NewRandomBlockID() (BlockID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return BlockID{}, fmt.Errorf("failed to generate block id: %w", err)
	}
	return BlockID(id), nil
}

// BlockIDFromBytes builds a BlockID from a raw byte slice, which must be
// exactly BlockIDSize bytes long.
func BlockIDFromBytes(b []byte) (BlockID, error) {
	if len(b) != BlockIDSize {
		return BlockID{}, fmt.Errorf("%w: got %d bytes, need %d", ErrInvalidBlockID, len(b), BlockIDSize)
	}
	var id BlockID
	copy(id[:], b)
	return id, nil
}

// BlockIDFromString parses the hex form produced by String.
func BlockIDFromString(s string) (BlockID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return BlockID{}, fmt.Errorf("%w: %v", ErrInvalidBlockID, err)
	}
	return BlockIDFromBytes(b)
}

// Bytes returns the ID as a byte slice.
func (id BlockID) Bytes() []byte {
	return id[:]
}

// String returns the lowercase hex form of the ID.
func (id BlockID) String() string {
	return hex.EncodeToString(id[:])
}
