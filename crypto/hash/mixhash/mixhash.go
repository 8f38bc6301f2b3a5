// Package mixhash provides the pluggable node hash functions used by the
// commitment accumulator, together with their precomputed empty-subtree
// tables.
//
// Three interchangeable backends are supported: blake2b (general-purpose,
// fast), and poseidon and mimc (algebraic hashes over the BN254 scalar
// field, for setups where proof verification over the tree is added
// downstream). Each backend derives its empty-subtree table at startup by
// repeatedly self-hashing the canonical empty leaf; tables are never
// hand-copied constants.
package mixhash

import (
	"fmt"
)

const (
	// HashSize is the byte width of every hash value, for all backends.
	// Algebraic backends store their field element big-endian, left-padded.
	HashSize = 32

	// MaxDepth is the maximum accumulator depth any backend supports; the
	// empty-subtree tables hold one entry per level up to this bound.
	MaxDepth = 32

	// zeroLeafSeed is the ASCII seed the canonical empty leaf is derived
	// from. Entry 0 of every table is a hash of this string, so that the
	// empty leaf can never collide with a real commitment chosen as zero.
	zeroLeafSeed = "slushie"
)

// Supported backend names, accepted by New.
const (
	TypeBlake2b  = "blake2b"
	TypePoseidon = "poseidon"
	TypeMiMC     = "mimc"
)

// Hash is a fixed-width node hash value. The all-zero value is reserved as
// the "not a real root" sentinel and is never produced by any backend.
type Hash [HashSize]byte

// ZeroHash is the reserved all-zero sentinel.
var ZeroHash Hash

// IsZero reports whether h is the reserved all-zero sentinel.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	out := make([]byte, HashSize)
	copy(out, h[:])
	return out
}

// String returns the 0x-prefixed hexadecimal representation of the hash.
func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

// FromBytes builds a Hash from a byte slice. Shorter slices are left-padded
// with zeros; longer ones are rejected.
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) > HashSize {
		return h, fmt.Errorf("hash value too long: %d bytes, want at most %d", len(b), HashSize)
	}
	copy(h[HashSize-len(b):], b)
	return h, nil
}

// Hasher is the contract every accumulator hash backend satisfies. A Hasher
// is stateless and safe for concurrent use; the zeros table is computed once
// and shared read-only by every tree instance using the backend.
type Hasher interface {
	// Name returns the backend identifier, one of the Type constants.
	Name() string
	// HashLeftRight combines two sibling node hashes into their parent.
	HashLeftRight(left, right Hash) Hash
	// Zeros returns the empty-subtree table: entry i is the hash of an
	// empty subtree of height i, entry 0 the canonical empty leaf.
	Zeros() *[MaxDepth]Hash
}

// New returns the shared Hasher instance for the given backend name.
func New(name string) (Hasher, error) {
	switch name {
	case TypeBlake2b:
		return blakeBackend, nil
	case TypePoseidon:
		return poseidonBackend, nil
	case TypeMiMC:
		return mimcBackend, nil
	default:
		return nil, fmt.Errorf("unknown hash backend %q", name)
	}
}

// deriveZeros fills an empty-subtree table from the canonical empty leaf:
// zeros[0] = leaf, zeros[i] = hash(zeros[i-1], zeros[i-1]).
func deriveZeros(leaf Hash, hashLR func(Hash, Hash) Hash) *[MaxDepth]Hash {
	var zeros [MaxDepth]Hash
	zeros[0] = leaf
	for i := 1; i < MaxDepth; i++ {
		zeros[i] = hashLR(zeros[i-1], zeros[i-1])
	}
	return &zeros
}
