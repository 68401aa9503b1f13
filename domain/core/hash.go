package core

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Hasher accumulates length-prefixed fields into a Hash
type Hasher struct {
	h hash.Hash
}

// NewHasher creates an empty Hasher
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// WriteField adds one field; fields are separated so ("ab","c") != ("a","bc")
func (h *Hasher) WriteField(s string) {
	var n [8]byte
	l := uint64(len(s))
	for i := range n {
		n[i] = byte(l >> (8 * i))
	}
	h.h.Write(n[:])
	h.h.Write([]byte(s))
}

// Sum returns the accumulated hash
func (h *Hasher) Sum() Hash {
	return Hash(hex.EncodeToString(h.h.Sum(nil)))
}
