// Package containerfs implements a self-describing container file format:
// a directory tree of documents serialized into a single, optionally
// password-protected binary file, and the lossless reverse transformation.
//
// # Overview
//
// A container is produced by composing four independently reversible
// transforms:
//
//   - directory tree -> tar archive stream
//   - archive stream -> compressed stream (gzip)
//   - compressed stream -> AEAD ciphertext (optional, password-based)
//   - content -> trailer-wrapped container file
//
// All filesystem access goes through the absfs.FileSystem abstraction, so
// the engine works identically over the OS filesystem, memfs, or any other
// AbsFs-compatible backend.
//
// # Container Layout
//
// The container file ends with a trailer that can be parsed by seeking
// backward from the end, without knowing the total structure ahead of time:
//
//	[ content bytes                ]  (compressed, possibly encrypted)
//	[ footer JSON (UTF-8, compact) ]  (variable length L)
//	[ footer length: uint32 LE     ]  (4 bytes, value = L)
//	[ magic "CPAK"                 ]  (4 bytes)
//
// The footer records the format version, the display name, collaborator
// names, timestamps, and — when the container is encrypted — the base64
// salt, IV, and password hash. The minimum valid container is 28 bytes.
//
// # Encryption
//
// Content is protected with authenticated encryption (AES-256-GCM or
// ChaCha20-Poly1305; both use 12-byte nonces and 16-byte tags, so the file
// layout is independent of the suite). The key is derived from the password
// with PBKDF2 or Argon2id and is never stored; a separate, longer password
// hash is kept in the footer so a wrong password is rejected before any
// decryption is attempted. A fresh salt and IV are generated on every save.
//
// # Basic Usage
//
//	fs, _ := memfs.NewFS()
//
//	c, err := containerfs.New(fs, &containerfs.Config{
//	    Collections: []string{"invoices", "customers"},
//	})
//	if err != nil {
//	    panic(err)
//	}
//
//	// Create a new container and get a scratch directory to work in.
//	dir, err := c.Create(ctx, "/books.cpak", "ACME Ltd")
//
//	// ... edit documents under dir ...
//
//	// Persist, this time with a password.
//	err = c.Save(ctx, "/books.cpak", "correct-horse")
//	c.Close()
//
// # Security Considerations
//
// Protected against:
//   - Unauthorized access to container content at rest
//   - Tampering and corruption (authenticated encryption; no plaintext is
//     ever released when tag verification fails)
//   - Malicious archive entries (path traversal names are sanitized or
//     skipped during extraction, never written outside the destination)
//
// Not protected against:
//   - Memory inspection while a container is open
//   - Metadata leakage through the plaintext footer (display name,
//     collaborator names, timestamps are not encrypted)
//   - Concurrent writers; the engine assumes a single logical writer per
//     container path
//
// # Scalability
//
// Content and its compressed/encrypted intermediates are fully materialized
// in memory between stages. This is a deliberate tradeoff that keeps the
// format simple; very large containers are outside the design envelope.
package containerfs
