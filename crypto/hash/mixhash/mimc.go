package mixhash

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// mimcHasher is the second algebraic backend: MiMC over the BN254 scalar
// field. Like poseidon, inputs are reduced into the field before hashing.
type mimcHasher struct {
	zeros *[MaxDepth]Hash
}

var mimcBackend = newMiMCHasher()

func newMiMCHasher() *mimcHasher {
	h := &mimcHasher{}
	h.zeros = deriveZeros(fieldZeroLeaf(), h.HashLeftRight)
	return h
}

func (h *mimcHasher) Name() string {
	return TypeMiMC
}

func (h *mimcHasher) HashLeftRight(left, right Hash) Hash {
	var l, r fr.Element
	// SetBigInt reduces values above the modulus.
	l.SetBigInt(new(big.Int).SetBytes(left[:]))
	r.SetBigInt(new(big.Int).SetBytes(right[:]))

	hasher := mimc.NewMiMC()
	lb := l.Bytes()
	rb := r.Bytes()
	// Writes of canonical field element bytes cannot fail.
	hasher.Write(lb[:])
	hasher.Write(rb[:])

	var out Hash
	copy(out[:], hasher.Sum(nil))
	return out
}

func (h *mimcHasher) Zeros() *[MaxDepth]Hash {
	return h.zeros
}
