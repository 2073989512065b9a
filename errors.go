package blockstore

import (
	"errors"
	"fmt"
)

// Error types represent different categories of failures. None of them is
// retried or recovered from inside this layer; they are surfaced to the
// caller as typed values so callers can branch on kind.

// ConfigurationError reports a physical block size that is too small to
// hold the block format's fixed overhead.
type ConfigurationError struct {
	PhysicalBlockSize uint64 // The configured physical block size
	MinRequired       uint64 // The minimum physical block size that would work
	Message           string // Human-readable error message
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: physical block size of %d is too small: %s (must be at least %d)",
		e.PhysicalBlockSize, e.Message, e.MinRequired)
}

// CorruptBlockError reports stored bytes that do not begin with the format
// prefix they were expected to carry. The load fails entirely; there is no
// best-effort decoding and no fallback to an older format.
type CorruptBlockError struct {
	ID       BlockID // The block that failed validation
	Expected []byte  // The prefix bytes that were expected
	Found    []byte  // The prefix bytes that were actually stored
	Message  string  // Human-readable error message
}

func (e *CorruptBlockError) Error() string {
	return fmt.Sprintf("corrupt block %s: %s: expected % x but found % x",
		e.ID, e.Message, e.Expected, e.Found)
}

// StoreError annotates a failure from the underlying block store with the
// operation and block ID it occurred on. The underlying error is preserved
// unchanged and available through Unwrap.
type StoreError struct {
	Operation string  // "load", "store", "try-create", etc.
	ID        BlockID // The block the operation targeted
	Err       error   // Underlying error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s %s: %v", e.Operation, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Common sentinel errors
var (
	ErrInvalidKey        = errors.New("invalid encryption key")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrAuthFailed        = errors.New("authentication failed - data may be corrupted or tampered")
	ErrInvalidBlockID    = errors.New("invalid block id")
	ErrUnsupportedCipher = errors.New("unsupported cipher suite")
	ErrNilBaseStore      = errors.New("base block store cannot be nil")
	ErrNilCipherEngine   = errors.New("cipher engine cannot be nil")
)

// Error checking helpers

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsCorruptBlockError checks if an error is a corrupt block error
func IsCorruptBlockError(err error) bool {
	var cbe *CorruptBlockError
	return errors.As(err, &cbe)
}

// IsStoreError checks if an error is an underlying store error
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsDecryptionError checks if an error is a failed authentication during
// decryption (tampered ciphertext, wrong key, or truncated data)
func IsDecryptionError(err error) bool {
	return errors.Is(err, ErrAuthFailed)
}
