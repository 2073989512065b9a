package blockstore

import (
	"math"
	"sync"
)

// InMemoryBlockStore keeps all blocks in process memory. It is the simplest
// base store and the one the test suites compose against. Safe for
// concurrent use; TryCreate is atomic under the store's lock.
type InMemoryBlockStore struct {
	mu     sync.RWMutex
	blocks map[BlockID][]byte
}

var _ BlockStore = (*InMemoryBlockStore)(nil)

// NewInMemoryBlockStore creates an empty in-memory block store.
func NewInMemoryBlockStore() *InMemoryBlockStore {
	return &InMemoryBlockStore{blocks: make(map[BlockID][]byte)}
}

// Load returns a copy of the block's content, or found == false if the
// block does not exist.
func (s *InMemoryBlockStore) Load(id BlockID) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.blocks[id]
	if !ok {
		return nil, false, nil
	}
	data := make([]byte, len(stored))
	copy(data, stored)
	return data, true, nil
}

// Store writes the buffer's window as the block's new content, overwriting
// any previous content.
func (s *InMemoryBlockStore) Store(id BlockID, data *GrowableBuffer) error {
	owned := copyWindow(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[id] = owned
	return nil
}

// TryCreate writes the block only if it does not exist yet.
func (s *InMemoryBlockStore) TryCreate(id BlockID, data *GrowableBuffer) (bool, error) {
	owned := copyWindow(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blocks[id]; exists {
		return false, nil
	}
	s.blocks[id] = owned
	return true, nil
}

// Remove deletes the block, reporting whether it existed.
func (s *InMemoryBlockStore) Remove(id BlockID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blocks[id]; !exists {
		return false, nil
	}
	delete(s.blocks, id)
	return true, nil
}

// NumBlocks returns the number of stored blocks.
func (s *InMemoryBlockStore) NumBlocks() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.blocks)), nil
}

// EstimateNumFreeBytes reports the store as effectively unbounded; it grows
// with process memory.
func (s *InMemoryBlockStore) EstimateNumFreeBytes() (uint64, error) {
	return math.MaxInt64, nil
}

// BlockSizeFromPhysicalBlockSize is the identity: this store adds no
// per-block overhead.
func (s *InMemoryBlockStore) BlockSizeFromPhysicalBlockSize(physicalBlockSize uint64) (uint64, error) {
	return physicalBlockSize, nil
}

// AllBlocks returns the IDs of all stored blocks in unspecified order.
func (s *InMemoryBlockStore) AllBlocks() ([]BlockID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]BlockID, 0, len(s.blocks))
	for id := range s.blocks {
		ids = append(ids, id)
	}
	return ids, nil
}

// Allocate returns a buffer for a size-byte payload. This store writes no
// headers of its own, so no prefix reserve is needed.
func (s *InMemoryBlockStore) Allocate(size int) *GrowableBuffer {
	return allocateBuffer(s.RequiredPrefixBytesTotal(), size)
}

// RequiredPrefixBytesSelf returns 0: this store writes no header.
func (s *InMemoryBlockStore) RequiredPrefixBytesSelf() int { return 0 }

// RequiredPrefixBytesTotal returns 0: this store is a leaf layer.
func (s *InMemoryBlockStore) RequiredPrefixBytesTotal() int { return 0 }

func copyWindow(data *GrowableBuffer) []byte {
	w := data.Bytes()
	owned := make([]byte, len(w))
	copy(owned, w)
	return owned
}
