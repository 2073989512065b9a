package blockstore

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var bucketBlocks = []byte("blocks")

// BoltBlockStore stores blocks in a bbolt database, one key/value pair per
// block in a single bucket. bbolt serializes writers internally, so Store
// and TryCreate on the same ID are atomic without extra locking here.
type BoltBlockStore struct {
	db *bbolt.DB
}

var _ BlockStore = (*BoltBlockStore)(nil)

// NewBoltBlockStore opens or creates the bbolt database at dbPath. The
// parent directory is created if it does not exist.
func NewBoltBlockStore(dbPath string) (*BoltBlockStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlocks)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create blocks bucket: %w", err)
	}

	return &BoltBlockStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltBlockStore) Close() error { return s.db.Close() }

// Load returns the block's content, or found == false if the block does
// not exist.
func (s *BoltBlockStore) Load(id BlockID) ([]byte, bool, error) {
	var data []byte
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		stored := tx.Bucket(bucketBlocks).Get(id.Bytes())
		if stored == nil {
			return nil
		}
		// bbolt values are only valid inside the transaction
		data = make([]byte, len(stored))
		copy(data, stored)
		found = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to load block: %w", err)
	}
	return data, found, nil
}

// Store writes the buffer's window as the block's new content, overwriting
// any previous content.
func (s *BoltBlockStore) Store(id BlockID, data *GrowableBuffer) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBlocks).Put(id.Bytes(), data.Bytes())
	})
	if err != nil {
		return fmt.Errorf("failed to store block: %w", err)
	}
	return nil
}

// TryCreate writes the block only if it does not exist yet. Existence check
// and write share one transaction.
func (s *BoltBlockStore) TryCreate(id BlockID, data *GrowableBuffer) (bool, error) {
	var created bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		if b.Get(id.Bytes()) != nil {
			return nil
		}
		created = true
		return b.Put(id.Bytes(), data.Bytes())
	})
	if err != nil {
		return false, fmt.Errorf("failed to create block: %w", err)
	}
	return created, nil
}

// Remove deletes the block, reporting whether it existed.
func (s *BoltBlockStore) Remove(id BlockID) (bool, error) {
	var existed bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		if b.Get(id.Bytes()) == nil {
			return nil
		}
		existed = true
		return b.Delete(id.Bytes())
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove block: %w", err)
	}
	return existed, nil
}

// NumBlocks returns the number of stored blocks.
func (s *BoltBlockStore) NumBlocks() (uint64, error) {
	var n uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = uint64(tx.Bucket(bucketBlocks).Stats().KeyN)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count blocks: %w", err)
	}
	return n, nil
}

// EstimateNumFreeBytes reports the store as effectively unbounded; bbolt
// grows its file as needed.
func (s *BoltBlockStore) EstimateNumFreeBytes() (uint64, error) {
	return math.MaxInt64, nil
}

// BlockSizeFromPhysicalBlockSize is the identity: this store adds no
// per-block overhead.
func (s *BoltBlockStore) BlockSizeFromPhysicalBlockSize(physicalBlockSize uint64) (uint64, error) {
	return physicalBlockSize, nil
}

// AllBlocks returns the IDs of all stored blocks.
func (s *BoltBlockStore) AllBlocks() ([]BlockID, error) {
	var ids []BlockID
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBlocks).ForEach(func(k, _ []byte) error {
			id, err := BlockIDFromBytes(k)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	return ids, nil
}

// Allocate returns a buffer for a size-byte payload. This store writes no
// headers of its own, so no prefix reserve is needed.
func (s *BoltBlockStore) Allocate(size int) *GrowableBuffer {
	return allocateBuffer(s.RequiredPrefixBytesTotal(), size)
}

// RequiredPrefixBytesSelf returns 0: this store writes no header.
func (s *BoltBlockStore) RequiredPrefixBytesSelf() int { return 0 }

// RequiredPrefixBytesTotal returns 0: this store is a leaf layer.
func (s *BoltBlockStore) RequiredPrefixBytesTotal() int { return 0 }
