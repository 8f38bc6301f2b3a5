package mixhash

import (
	"golang.org/x/crypto/blake2b"
)

// blakeHasher is the general-purpose backend: blake2b-256 over the
// concatenation of both siblings.
type blakeHasher struct {
	zeros *[MaxDepth]Hash
}

var blakeBackend = newBlakeHasher()

func newBlakeHasher() *blakeHasher {
	h := &blakeHasher{}
	h.zeros = deriveZeros(Hash(blake2b.Sum256([]byte(zeroLeafSeed))), h.HashLeftRight)
	return h
}

func (h *blakeHasher) Name() string {
	return TypeBlake2b
}

func (h *blakeHasher) HashLeftRight(left, right Hash) Hash {
	var data [2 * HashSize]byte
	copy(data[:HashSize], left[:])
	copy(data[HashSize:], right[:])
	return blake2b.Sum256(data[:])
}

func (h *blakeHasher) Zeros() *[MaxDepth]Hash {
	return h.zeros
}
