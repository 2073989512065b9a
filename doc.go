// Package blockstore provides content-addressed block storage with a
// transparent encryption layer, built so that composed storage layers share
// one buffer allocation per operation.
//
// # Overview
//
// A BlockStore maps fixed-length opaque BlockIDs to variable-length byte
// blocks. EncryptedBlockStore wraps any BlockStore and encrypts every block
// before it reaches the base store, prefixing it with a 2-byte format
// version header; on load the header is validated, stripped, and the block
// is authenticated and decrypted. Three base stores ship with the package:
// InMemoryBlockStore, OnDiskBlockStore (over any absfs.FileSystem) and
// BoltBlockStore (over a bbolt database).
//
// # Zero-copy layering
//
// Every layer of a composed store declares how many prefix bytes it writes
// in front of a payload (RequiredPrefixBytesSelf) and how many it and the
// layers below it need together (RequiredPrefixBytesTotal). Allocate uses
// the cumulative count to hand out a GrowableBuffer: a buffer that tracks a
// declared lower bound on its reserved prefix and suffix capacity and
// re-validates it on every window operation. Each layer grows the window
// backward into the reserve and writes its header in place, so a block
// travels from plaintext to fully framed physical record inside a single
// allocation.
//
// # Supported Cipher Suites
//
//   - AES-256-GCM: Advanced Encryption Standard with 256-bit keys and
//     Galois/Counter Mode for authenticated encryption
//   - AES-128-GCM: the same mode with 128-bit keys
//   - XChaCha20-Poly1305: XChaCha20 stream cipher with Poly1305 message
//     authentication and an extended 24-byte nonce
//
// All suites provide authenticated encryption: a tampered, truncated or
// wrongly-keyed block fails to load, it never decrypts to wrong plaintext.
//
// # Basic Usage
//
//	key, _ := blockstore.GenerateKey(32)
//	engine, _ := blockstore.NewAESGCMEngine(key)
//
//	store, err := blockstore.NewEncryptedBlockStore(
//	    blockstore.NewInMemoryBlockStore(), engine)
//	if err != nil {
//	    panic(err)
//	}
//
//	id, _ := blockstore.NewRandomBlockID()
//	buf := store.Allocate(len("secret payload"))
//	copy(buf.Bytes(), "secret payload")
//	store.Store(id, buf)
//
//	plaintext, found, _ := store.Load(id)
//
// # Error Handling
//
// Failures are typed: ConfigurationError for impossible block size
// arithmetic, CorruptBlockError for blocks whose stored bytes do not carry
// the expected format prefix, ErrAuthFailed for failed authentication, and
// StoreError for annotated base store failures. Absence of a block is not
// an error; Load reports it through its found result. This layer never
// retries and never recovers silently.
//
// # Concurrency
//
// Stores hold no per-call state and are safe for concurrent use across
// distinct block IDs. Concurrent operations on the same ID are coordinated
// by the base store, if at all. Buffers are owned by a single operation and
// must not be shared.
package blockstore
