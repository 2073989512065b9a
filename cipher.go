package blockstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherEngine provides AEAD encryption/decryption of block payloads.
// Engines are stateless beyond their immutable key and safe for concurrent
// use.
type CipherEngine interface {
	// KeySize returns the key size in bytes the engine was constructed with
	KeySize() int

	// CiphertextOverhead returns how many bytes a ciphertext is larger
	// than its plaintext (nonce length + authentication tag length). The
	// value is fixed per engine and known without running any operation.
	CiphertextOverhead() int

	// Encrypt encrypts the buffer's window in place. It requires a
	// declared prefix reserve of at least CiphertextOverhead bytes; the
	// nonce and tag are written into the reclaimed reserve and the window
	// afterwards holds the full ciphertext (nonce ++ payload ++ tag),
	// ready for further header-prepending by an outer layer.
	Encrypt(data *GrowableBuffer) error

	// Decrypt parses the nonce and tag from ciphertext, verifies
	// authentication and returns the plaintext. It never returns
	// partially-decrypted or unauthenticated output.
	Decrypt(ciphertext []byte) ([]byte, error)
}

// aeadEngine implements the in-place encryption protocol shared by all
// concrete engines on top of a crypto/cipher AEAD.
type aeadEngine struct {
	aead    cipher.AEAD
	keySize int
}

func (e *aeadEngine) KeySize() int {
	return e.keySize
}

func (e *aeadEngine) CiphertextOverhead() int {
	return e.aead.NonceSize() + e.aead.Overhead()
}

func (e *aeadEngine) Encrypt(data *GrowableBuffer) error {
	nonceSize := e.aead.NonceSize()
	tagSize := e.aead.Overhead()
	overhead := nonceSize + tagSize
	if data.AvailablePrefixBytes() < overhead {
		return fmt.Errorf("cipher needs %d reserved prefix bytes but the buffer declares %d",
			overhead, data.AvailablePrefixBytes())
	}

	plaintextLen := data.Len()
	data.GrowWindow(overhead, 0)
	w := data.Bytes()

	nonce := w[:nonceSize]
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal requires dst and plaintext to overlap exactly, so move the
	// plaintext down next to the nonce first; the tag then lands in the
	// remaining reserved space at the end of the window.
	copy(w[nonceSize:nonceSize+plaintextLen], w[overhead:overhead+plaintextLen])
	e.aead.Seal(w[nonceSize:nonceSize], nonce, w[nonceSize:nonceSize+plaintextLen], nil)
	return nil
}

func (e *aeadEngine) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(ciphertext) < nonceSize+e.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}

	nonce := ciphertext[:nonceSize]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}

// AESGCMEngine implements CipherEngine using AES-256-GCM
type AESGCMEngine struct {
	aeadEngine
}

// NewAESGCMEngine creates a new AES-256-GCM cipher engine
func NewAESGCMEngine(key []byte) (*AESGCMEngine, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: AES-256 requires a 32-byte key, got %d bytes", ErrInvalidKey, len(key))
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	return &AESGCMEngine{aeadEngine{aead: aead, keySize: 32}}, nil
}

// AES128GCMEngine implements CipherEngine using AES-128-GCM
type AES128GCMEngine struct {
	aeadEngine
}

// NewAES128GCMEngine creates a new AES-128-GCM cipher engine
func NewAES128GCMEngine(key []byte) (*AES128GCMEngine, error) {
	if len(key) != 16 {
		return nil, fmt.Errorf("%w: AES-128 requires a 16-byte key, got %d bytes", ErrInvalidKey, len(key))
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	return &AES128GCMEngine{aeadEngine{aead: aead, keySize: 16}}, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aead, nil
}

// XChaCha20Poly1305Engine implements CipherEngine using XChaCha20-Poly1305.
// The extended 24-byte nonce makes random nonces safe even for very large
// numbers of blocks encrypted under one key.
type XChaCha20Poly1305Engine struct {
	aeadEngine
}

// NewXChaCha20Poly1305Engine creates a new XChaCha20-Poly1305 cipher engine
func NewXChaCha20Poly1305Engine(key []byte) (*XChaCha20Poly1305Engine, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: XChaCha20-Poly1305 requires a %d-byte key, got %d bytes",
			ErrInvalidKey, chacha20poly1305.KeySize, len(key))
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create XChaCha20-Poly1305 cipher: %w", err)
	}

	return &XChaCha20Poly1305Engine{aeadEngine{aead: aead, keySize: chacha20poly1305.KeySize}}, nil
}

// NewCipherEngine creates a new cipher engine based on the cipher suite
func NewCipherEngine(suite CipherSuite, key []byte) (CipherEngine, error) {
	switch suite {
	case CipherAES256GCM:
		return NewAESGCMEngine(key)
	case CipherAES128GCM:
		return NewAES128GCMEngine(key)
	case CipherXChaCha20Poly1305:
		return NewXChaCha20Poly1305Engine(key)
	case CipherAuto:
		// Auto-select based on hardware capabilities
		// For now, default to AES-256-GCM
		return NewAESGCMEngine(key)
	default:
		return nil, ErrUnsupportedCipher
	}
}
