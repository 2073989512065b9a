package blockstore

import (
	"bytes"
	"errors"
	"testing"
)

// engineFixtures returns one engine per supported suite, each with a fresh
// random key of the right size.
func engineFixtures(t *testing.T) map[string]CipherEngine {
	t.Helper()

	fixtures := make(map[string]CipherEngine)
	for _, suite := range []CipherSuite{CipherAES256GCM, CipherAES128GCM, CipherXChaCha20Poly1305} {
		key, err := GenerateKey(suite.KeySize())
		if err != nil {
			t.Fatalf("GenerateKey(%d) failed: %v", suite.KeySize(), err)
		}
		engine, err := NewCipherEngine(suite, key)
		if err != nil {
			t.Fatalf("NewCipherEngine(%v) failed: %v", suite, err)
		}
		fixtures[suite.String()] = engine
	}
	return fixtures
}

// encryptBytes runs the in-place encryption path on a fresh buffer with
// exactly the engine's overhead reserved, returning the physical ciphertext.
func encryptBytes(t *testing.T, engine CipherEngine, plaintext []byte) []byte {
	t.Helper()

	buf := allocateBuffer(engine.CiphertextOverhead(), len(plaintext))
	copy(buf.Bytes(), plaintext)
	if err := engine.Encrypt(buf); err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	return buf.Bytes()
}

func TestCipherEngine_RoundTrip(t *testing.T) {
	plaintexts := [][]byte{
		nil,
		[]byte{0},
		[]byte("hello world"),
		dataRegion(1, 4),
		dataRegion(1024, 5),
		dataRegion(64*1024, 6),
	}

	for name, engine := range engineFixtures(t) {
		t.Run(name, func(t *testing.T) {
			for _, plaintext := range plaintexts {
				ciphertext := encryptBytes(t, engine, plaintext)

				if len(ciphertext) != len(plaintext)+engine.CiphertextOverhead() {
					t.Fatalf("ciphertext length = %d, want %d + %d",
						len(ciphertext), len(plaintext), engine.CiphertextOverhead())
				}

				decrypted, err := engine.Decrypt(ciphertext)
				if err != nil {
					t.Fatalf("Decrypt failed: %v", err)
				}
				if !bytes.Equal(decrypted, plaintext) {
					t.Errorf("round trip of %d bytes produced different plaintext", len(plaintext))
				}
			}
		})
	}
}

func TestCipherEngine_EncryptLeavesNoDeclaredReserve(t *testing.T) {
	for name, engine := range engineFixtures(t) {
		t.Run(name, func(t *testing.T) {
			buf := allocateBuffer(engine.CiphertextOverhead(), 100)
			if err := engine.Encrypt(buf); err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}
			if buf.AvailablePrefixBytes() != 0 {
				t.Errorf("AvailablePrefixBytes() = %d after Encrypt, want 0", buf.AvailablePrefixBytes())
			}
		})
	}
}

func TestCipherEngine_EncryptPreservesOuterReserve(t *testing.T) {
	for name, engine := range engineFixtures(t) {
		t.Run(name, func(t *testing.T) {
			const outer = 7
			buf := allocateBuffer(engine.CiphertextOverhead()+outer, 100)
			if err := engine.Encrypt(buf); err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}
			if buf.AvailablePrefixBytes() != outer {
				t.Errorf("AvailablePrefixBytes() = %d after Encrypt, want %d",
					buf.AvailablePrefixBytes(), outer)
			}
		})
	}
}

func TestCipherEngine_EncryptRejectsInsufficientReserve(t *testing.T) {
	for name, engine := range engineFixtures(t) {
		t.Run(name, func(t *testing.T) {
			buf := allocateBuffer(engine.CiphertextOverhead()-1, 100)
			if err := engine.Encrypt(buf); err == nil {
				t.Error("Encrypt with a too-small reserve should fail")
			}
		})
	}
}

func TestCipherEngine_TamperedCiphertextFailsAuthentication(t *testing.T) {
	for name, engine := range engineFixtures(t) {
		t.Run(name, func(t *testing.T) {
			plaintext := dataRegion(256, 8)
			ciphertext := encryptBytes(t, engine, plaintext)

			for i := range ciphertext {
				tampered := make([]byte, len(ciphertext))
				copy(tampered, ciphertext)
				tampered[i] ^= 0x01

				if _, err := engine.Decrypt(tampered); !errors.Is(err, ErrAuthFailed) {
					t.Fatalf("flipping a bit in byte %d: got %v, want ErrAuthFailed", i, err)
				}
			}
		})
	}
}

func TestCipherEngine_TruncatedCiphertextFails(t *testing.T) {
	for name, engine := range engineFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ciphertext := encryptBytes(t, engine, []byte("some payload"))

			if _, err := engine.Decrypt(ciphertext[:engine.CiphertextOverhead()-1]); err == nil {
				t.Error("decrypting a ciphertext shorter than the overhead should fail")
			}
			if _, err := engine.Decrypt(ciphertext[:len(ciphertext)-1]); !errors.Is(err, ErrAuthFailed) {
				t.Error("decrypting a truncated ciphertext should fail authentication")
			}
		})
	}
}

func TestCipherEngine_WrongKeyFailsAuthentication(t *testing.T) {
	key1, _ := GenerateKey(32)
	key2, _ := GenerateKey(32)
	engine1, err := NewAESGCMEngine(key1)
	if err != nil {
		t.Fatalf("NewAESGCMEngine failed: %v", err)
	}
	engine2, err := NewAESGCMEngine(key2)
	if err != nil {
		t.Fatalf("NewAESGCMEngine failed: %v", err)
	}

	ciphertext := encryptBytes(t, engine1, []byte("under key one"))
	if _, err := engine2.Decrypt(ciphertext); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("decrypting under the wrong key: got %v, want ErrAuthFailed", err)
	}
}

func TestCipherEngine_NoncesDiffer(t *testing.T) {
	for name, engine := range engineFixtures(t) {
		t.Run(name, func(t *testing.T) {
			plaintext := []byte("same plaintext")
			a := encryptBytes(t, engine, plaintext)
			b := encryptBytes(t, engine, plaintext)
			if bytes.Equal(a, b) {
				t.Error("two encryptions of the same plaintext produced identical ciphertext")
			}
		})
	}
}

func TestNewCipherEngine_KeySizes(t *testing.T) {
	tests := []struct {
		suite   CipherSuite
		keySize int
	}{
		{CipherAES256GCM, 32},
		{CipherAES128GCM, 16},
		{CipherXChaCha20Poly1305, 32},
		{CipherAuto, 32},
	}
	for _, tt := range tests {
		key, _ := GenerateKey(tt.keySize)
		engine, err := NewCipherEngine(tt.suite, key)
		if err != nil {
			t.Errorf("NewCipherEngine(%v) with %d-byte key failed: %v", tt.suite, tt.keySize, err)
			continue
		}
		if engine.KeySize() != tt.keySize {
			t.Errorf("KeySize() = %d, want %d", engine.KeySize(), tt.keySize)
		}

		wrongKey, _ := GenerateKey(tt.keySize + 1)
		if _, err := NewCipherEngine(tt.suite, wrongKey); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("NewCipherEngine(%v) with wrong key size: got %v, want ErrInvalidKey", tt.suite, err)
		}
	}

	if _, err := NewCipherEngine(CipherSuite(200), make([]byte, 32)); !errors.Is(err, ErrUnsupportedCipher) {
		t.Errorf("unknown suite: got %v, want ErrUnsupportedCipher", err)
	}
}

func TestCipherEngine_Overheads(t *testing.T) {
	fixtures := engineFixtures(t)
	// 12-byte GCM nonce + 16-byte tag; 24-byte XChaCha20 nonce + 16-byte tag
	if got := fixtures["aes-256-gcm"].CiphertextOverhead(); got != 28 {
		t.Errorf("aes-256-gcm overhead = %d, want 28", got)
	}
	if got := fixtures["aes-128-gcm"].CiphertextOverhead(); got != 28 {
		t.Errorf("aes-128-gcm overhead = %d, want 28", got)
	}
	if got := fixtures["xchacha20-poly1305"].CiphertextOverhead(); got != 40 {
		t.Errorf("xchacha20-poly1305 overhead = %d, want 40", got)
	}
}

func TestEncryptionKey_HexRoundTripAndWipe(t *testing.T) {
	key, err := GenerateKey(32)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	parsed, err := KeyFromHex(key.Hex())
	if err != nil {
		t.Fatalf("KeyFromHex failed: %v", err)
	}
	if !bytes.Equal(parsed, key) {
		t.Error("hex round trip changed the key")
	}

	key.Wipe()
	if !bytes.Equal(key, make([]byte, 32)) {
		t.Error("Wipe did not zero the key material")
	}
}

func TestGenerateKey_InvalidSize(t *testing.T) {
	if _, err := GenerateKey(0); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("GenerateKey(0): got %v, want ErrInvalidKey", err)
	}
	if _, err := GenerateKey(-1); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("GenerateKey(-1): got %v, want ErrInvalidKey", err)
	}
}
