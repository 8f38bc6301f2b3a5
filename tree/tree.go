// Package tree implements the append-only commitment accumulator: a
// fixed-depth incremental Merkle tree with O(depth) insertion, O(1) current
// root retrieval and a bounded ring buffer of recent roots.
//
// Incomplete branches are padded with the hash backend's empty-subtree
// constants, so the root is always defined regardless of how many leaves
// have been inserted. Once a root ages out of the history ring it becomes
// permanently unrecognized; the ring size is the replay trust window.
package tree

import (
	"errors"
	"fmt"

	"github.com/slushie/slushie-node/crypto/hash/mixhash"
)

var (
	// ErrDepthIsZero is returned by New when the requested depth is 0.
	ErrDepthIsZero = errors.New("tree depth cannot be zero")
	// ErrDepthTooLong is returned by New when the requested depth exceeds
	// mixhash.MaxDepth.
	ErrDepthTooLong = errors.New("tree depth exceeds the maximum")
	// ErrHistoryIsZero is returned by New when the root history size is 0.
	ErrHistoryIsZero = errors.New("root history size cannot be zero")
	// ErrTreeFull is returned by Insert once 2^depth leaves have been
	// inserted. The condition is permanent for a given tree.
	ErrTreeFull = errors.New("merkle tree is full")
)

// Tree is an incremental Merkle tree of fixed depth. Leaves are append-only;
// the tree keeps, per level, the hash of the rightmost completed subtree
// still waiting for a right sibling, which is all the state an insertion
// needs. Tree is not safe for concurrent use; the owning ledger serializes
// access.
type Tree struct {
	hasher      mixhash.Hasher
	depth       int
	historySize int

	nextIndex      uint64
	rootIndex      uint64
	filledSubtrees []mixhash.Hash
	roots          []mixhash.Hash
}

// New creates an empty tree of the given depth with a root history ring of
// historySize entries. Every history slot starts equal to the empty-tree
// root, so the freshly constructed tree already recognizes its own root.
func New(hasher mixhash.Hasher, depth, historySize int) (*Tree, error) {
	if depth == 0 {
		return nil, ErrDepthIsZero
	}
	if depth > mixhash.MaxDepth {
		return nil, fmt.Errorf("%w: %d > %d", ErrDepthTooLong, depth, mixhash.MaxDepth)
	}
	if historySize == 0 {
		return nil, ErrHistoryIsZero
	}

	zeros := hasher.Zeros()
	filled := make([]mixhash.Hash, depth)
	copy(filled, zeros[:depth])

	roots := make([]mixhash.Hash, historySize)
	for i := range roots {
		roots[i] = zeros[depth-1]
	}

	return &Tree{
		hasher:         hasher,
		depth:          depth,
		historySize:    historySize,
		filledSubtrees: filled,
		roots:          roots,
	}, nil
}

// Insert appends a leaf and returns the index it occupies. It fails with
// ErrTreeFull exactly when 2^depth leaves have already been inserted.
func (t *Tree) Insert(leaf mixhash.Hash) (uint64, error) {
	if t.nextIndex == t.Capacity() {
		return 0, ErrTreeFull
	}
	leafIndex := t.nextIndex
	zeros := t.hasher.Zeros()

	currentIndex := leafIndex
	currentHash := leaf
	for i := 0; i < t.depth; i++ {
		if currentIndex%2 == 0 {
			// Left child: remember it for the future right sibling and
			// pad the branch with the empty-subtree constant.
			t.filledSubtrees[i] = currentHash
			currentHash = t.hasher.HashLeftRight(currentHash, zeros[i])
		} else {
			currentHash = t.hasher.HashLeftRight(t.filledSubtrees[i], currentHash)
		}
		currentIndex /= 2
	}

	t.rootIndex = (t.rootIndex + 1) % uint64(t.historySize)
	t.roots[t.rootIndex] = currentHash
	t.nextIndex++

	return leafIndex, nil
}

// Clone returns an independent copy of the tree. The owning ledger takes a
// clone before an insertion so it can roll the accumulator back when the
// state cannot be persisted.
func (t *Tree) Clone() *Tree {
	filled := make([]mixhash.Hash, len(t.filledSubtrees))
	copy(filled, t.filledSubtrees)
	roots := make([]mixhash.Hash, len(t.roots))
	copy(roots, t.roots)
	return &Tree{
		hasher:         t.hasher,
		depth:          t.depth,
		historySize:    t.historySize,
		nextIndex:      t.nextIndex,
		rootIndex:      t.rootIndex,
		filledSubtrees: filled,
		roots:          roots,
	}
}

// Root returns the most recent root.
func (t *Tree) Root() mixhash.Hash {
	return t.roots[t.rootIndex]
}

// IsKnownRoot reports whether root is still inside the history window. The
// reserved all-zero sentinel is rejected outright; otherwise the ring is
// scanned most-recent-first, wrapping around.
func (t *Tree) IsKnownRoot(root mixhash.Hash) bool {
	if root.IsZero() {
		return false
	}
	size := uint64(t.historySize)
	for i := uint64(0); i < size; i++ {
		if root == t.roots[(size+t.rootIndex-i)%size] {
			return true
		}
	}
	return false
}

// LeafCount returns how many leaves have been inserted so far, which is also
// the index the next leaf will occupy.
func (t *Tree) LeafCount() uint64 {
	return t.nextIndex
}

// Capacity returns the maximum number of leaves the tree can hold, 2^depth.
func (t *Tree) Capacity() uint64 {
	return 1 << uint(t.depth)
}

// Depth returns the fixed tree depth.
func (t *Tree) Depth() int {
	return t.depth
}

// HistorySize returns the size of the root history window.
func (t *Tree) HistorySize() int {
	return t.historySize
}

// EmptyRoot returns the root of a tree of this depth with no leaves. It is
// constant for a given backend and depth.
func (t *Tree) EmptyRoot() mixhash.Hash {
	return t.hasher.Zeros()[t.depth-1]
}

// HasherName returns the name of the hash backend the tree was built with.
func (t *Tree) HasherName() string {
	return t.hasher.Name()
}
