package blockstore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// EncryptionKey holds raw symmetric key material of a fixed,
// algorithm-specific size. Key derivation and key storage are out of scope
// for this package; keys arrive here fully formed.
type EncryptionKey []byte

// GenerateKey returns a new random key of the given size in bytes.
func GenerateKey(size int) (EncryptionKey, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: key size must be positive, got %d", ErrInvalidKey, size)
	}
	key := make(EncryptionKey, size)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// KeyFromHex parses a key from its hex form.
func KeyFromHex(s string) (EncryptionKey, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return EncryptionKey(key), nil
}

// Hex returns the lowercase hex form of the key.
func (k EncryptionKey) Hex() string {
	return hex.EncodeToString(k)
}

// Wipe overwrites the key material with zeros. The key must not be used
// afterwards.
func (k EncryptionKey) Wipe() {
	for i := range k {
		k[i] = 0
	}
}
