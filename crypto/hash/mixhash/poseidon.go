package mixhash

import (
	"math/big"

	"github.com/iden3/go-iden3-crypto/constants"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"golang.org/x/crypto/blake2b"
)

// poseidonHasher is the SNARK-friendly backend: a two-input Poseidon
// permutation over the BN254 scalar field. Inputs are reduced into the
// field before hashing, so arbitrary 32-byte commitments are accepted and
// the backend stays deterministic for values above the modulus.
type poseidonHasher struct {
	zeros *[MaxDepth]Hash
}

var poseidonBackend = newPoseidonHasher()

func newPoseidonHasher() *poseidonHasher {
	h := &poseidonHasher{}
	h.zeros = deriveZeros(fieldZeroLeaf(), h.HashLeftRight)
	return h
}

// fieldZeroLeaf derives the canonical empty leaf for field-based backends:
// the blake2b hash of the seed, reduced into the BN254 scalar field.
func fieldZeroLeaf() Hash {
	seed := blake2b.Sum256([]byte(zeroLeafSeed))
	v := new(big.Int).SetBytes(seed[:])
	v.Mod(v, constants.Q)
	var leaf Hash
	v.FillBytes(leaf[:])
	return leaf
}

func (h *poseidonHasher) Name() string {
	return TypePoseidon
}

func (h *poseidonHasher) HashLeftRight(left, right Hash) Hash {
	l := new(big.Int).SetBytes(left[:])
	l.Mod(l, constants.Q)
	r := new(big.Int).SetBytes(right[:])
	r.Mod(r, constants.Q)

	sum, err := poseidon.Hash([]*big.Int{l, r})
	if err != nil {
		// Inputs are reduced above; the only failure mode is an out of
		// range input, which cannot happen here.
		panic(err)
	}
	var out Hash
	sum.FillBytes(out[:])
	return out
}

func (h *poseidonHasher) Zeros() *[MaxDepth]Hash {
	return h.zeros
}
