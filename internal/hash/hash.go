// Package hash provides content hashing for revision tracking.
//
// The revision tracker fingerprints document content with SHA-256 so that a
// reference captured against one snapshot can be detected as stale after any
// later content mutation. The package provides a real implementation using
// crypto/sha256 and a fake implementation for testing.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher provides an abstraction for content hashing.
type Hasher interface {
	// HashText computes a hex-encoded digest of the given text.
	HashText(text string) string
}

// SHA256Hasher implements Hasher using SHA-256.
type SHA256Hasher struct{}

// NewSHA256Hasher creates a new SHA256Hasher.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// HashText computes the SHA-256 digest of text, hex encoded.
func (h *SHA256Hasher) HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// FakeHasher implements Hasher with predetermined digests for testing.
type FakeHasher struct {
	digests map[string]string
}

// NewFakeHasher creates a new FakeHasher.
func NewFakeHasher() *FakeHasher {
	return &FakeHasher{digests: make(map[string]string)}
}

// SetDigest sets the digest returned for a specific text.
func (h *FakeHasher) SetDigest(text, digest string) {
	h.digests[text] = digest
}

// HashText returns the predetermined digest for text, or "fakehash" when
// none was set.
func (h *FakeHasher) HashText(text string) string {
	if d, ok := h.digests[text]; ok {
		return d
	}
	return "fakehash"
}
