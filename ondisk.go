package blockstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/absfs/absfs"
)

// onDiskBlockPrefix marks files written by OnDiskBlockStore: a 4-byte magic
// ("ABSB") followed by the on-disk format version.
var onDiskBlockPrefix = [5]byte{'A', 'B', 'S', 'B', 0x01}

// OnDiskBlockStore stores each block as one file on an absfs filesystem.
// Files live at {root}/{hh}/{hex(id)} where hh is the first ID byte in hex,
// sharding the directory so no single directory grows unbounded.
//
// Each file begins with a short magic+version prefix. Because the store
// declares that prefix through RequiredPrefixBytesSelf, outer layers
// composed on top of it reserve space for it up front and the prefix is
// written in place into the caller's buffer.
type OnDiskBlockStore struct {
	fs   absfs.FileSystem
	root string
}

var _ BlockStore = (*OnDiskBlockStore)(nil)

// NewOnDiskBlockStore creates a block store rooted at root on the given
// filesystem. The root directory is created if it does not exist.
func NewOnDiskBlockStore(fs absfs.FileSystem, root string) (*OnDiskBlockStore, error) {
	if fs == nil {
		return nil, errors.New("base filesystem cannot be nil")
	}
	if err := fs.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create block store root %q: %w", root, err)
	}
	return &OnDiskBlockStore{fs: fs, root: root}, nil
}

// blockPath returns the file path for a block ID.
func (s *OnDiskBlockStore) blockPath(id BlockID) string {
	hexID := id.String()
	return filepath.Join(s.root, hexID[:2], hexID)
}

// Load reads the block's file, validates and strips the magic prefix and
// returns the remaining content. A missing file is reported as absent.
func (s *OnDiskBlockStore) Load(id BlockID) ([]byte, bool, error) {
	f, err := s.fs.OpenFile(s.blockPath(id), os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to open block file: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read block file: %w", err)
	}

	if len(raw) < len(onDiskBlockPrefix) || !bytes.Equal(raw[:len(onDiskBlockPrefix)], onDiskBlockPrefix[:]) {
		found := raw
		if len(found) > len(onDiskBlockPrefix) {
			found = found[:len(onDiskBlockPrefix)]
		}
		return nil, false, &CorruptBlockError{
			ID:       id,
			Expected: onDiskBlockPrefix[:],
			Found:    found,
			Message:  "missing on-disk block magic",
		}
	}
	return raw[len(onDiskBlockPrefix):], true, nil
}

// Store writes the block's file, overwriting any previous content. The
// magic prefix is written into the buffer's reserved prefix space, then the
// whole window goes to disk in one write.
func (s *OnDiskBlockStore) Store(id BlockID, data *GrowableBuffer) error {
	prependOnDiskPrefix(data)
	return s.writeFile(id, data.Bytes(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

// TryCreate writes the block's file only if it does not exist yet. The
// existence check and the write are not atomic against concurrent creators
// of the same ID; same-ID coordination is the caller's business.
func (s *OnDiskBlockStore) TryCreate(id BlockID, data *GrowableBuffer) (bool, error) {
	if _, err := s.fs.Stat(s.blockPath(id)); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to check block existence: %w", err)
	}
	prependOnDiskPrefix(data)
	if err := s.writeFile(id, data.Bytes(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC); err != nil {
		return false, err
	}
	return true, nil
}

func (s *OnDiskBlockStore) writeFile(id BlockID, content []byte, flag int) error {
	path := s.blockPath(id)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create shard directory: %w", err)
	}

	f, err := s.fs.OpenFile(path, flag, 0600)
	if err != nil {
		return fmt.Errorf("failed to open block file for writing: %w", err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("failed to write block file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close block file: %w", err)
	}
	return nil
}

// Remove deletes the block's file, reporting whether it existed.
func (s *OnDiskBlockStore) Remove(id BlockID) (bool, error) {
	err := s.fs.Remove(s.blockPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to remove block file: %w", err)
	}
	return true, nil
}

// NumBlocks returns the number of stored blocks.
func (s *OnDiskBlockStore) NumBlocks() (uint64, error) {
	ids, err := s.AllBlocks()
	if err != nil {
		return 0, err
	}
	return uint64(len(ids)), nil
}

// EstimateNumFreeBytes reports the store as effectively unbounded: absfs
// has no free-space query, so the estimate defers to the filesystem below.
func (s *OnDiskBlockStore) EstimateNumFreeBytes() (uint64, error) {
	return math.MaxInt64, nil
}

// BlockSizeFromPhysicalBlockSize converts a physical block size into the
// maximum payload size that fits after the magic prefix.
func (s *OnDiskBlockStore) BlockSizeFromPhysicalBlockSize(physicalBlockSize uint64) (uint64, error) {
	prefixLen := uint64(len(onDiskBlockPrefix))
	if physicalBlockSize < prefixLen {
		return 0, &ConfigurationError{
			PhysicalBlockSize: physicalBlockSize,
			MinRequired:       prefixLen,
			Message:           "too small to hold the on-disk block magic",
		}
	}
	return physicalBlockSize - prefixLen, nil
}

// AllBlocks walks the shard directories and returns the IDs of all stored
// blocks. Entries that do not parse as block IDs are ignored.
func (s *OnDiskBlockStore) AllBlocks() ([]BlockID, error) {
	shards, err := s.readDirNames(s.root)
	if err != nil {
		return nil, err
	}

	var ids []BlockID
	for _, shard := range shards {
		shardPath := filepath.Join(s.root, shard)
		info, err := s.fs.Stat(shardPath)
		if err != nil || !info.IsDir() {
			continue
		}
		names, err := s.readDirNames(shardPath)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			id, err := BlockIDFromString(name)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *OnDiskBlockStore) readDirNames(dir string) ([]string, error) {
	f, err := s.fs.OpenFile(dir, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory %q: %w", dir, err)
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to list directory %q: %w", dir, err)
	}
	return names, nil
}

// Allocate returns a buffer for a size-byte payload with the magic prefix
// pre-reserved.
func (s *OnDiskBlockStore) Allocate(size int) *GrowableBuffer {
	return allocateBuffer(s.RequiredPrefixBytesTotal(), size)
}

// RequiredPrefixBytesSelf returns the length of the magic+version prefix.
func (s *OnDiskBlockStore) RequiredPrefixBytesSelf() int { return len(onDiskBlockPrefix) }

// RequiredPrefixBytesTotal equals RequiredPrefixBytesSelf: this store is a
// leaf layer.
func (s *OnDiskBlockStore) RequiredPrefixBytesTotal() int { return len(onDiskBlockPrefix) }

func prependOnDiskPrefix(data *GrowableBuffer) {
	data.GrowWindow(len(onDiskBlockPrefix), 0)
	copy(data.Bytes()[:len(onDiskBlockPrefix)], onDiskBlockPrefix[:])
}
