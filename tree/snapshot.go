package tree

import (
	"fmt"

	"github.com/slushie/slushie-node/crypto/hash/mixhash"
)

// Snapshot is a serializable copy of the tree state, used by the storage
// layer to make the accumulator durable across restarts. The hash backend is
// recorded by name and resolved again on restore, so snapshots taken with
// one backend cannot silently be reopened with another.
type Snapshot struct {
	Hasher         string   `cbor:"1,keyasint"`
	Depth          int      `cbor:"2,keyasint"`
	HistorySize    int      `cbor:"3,keyasint"`
	NextIndex      uint64   `cbor:"4,keyasint"`
	RootIndex      uint64   `cbor:"5,keyasint"`
	FilledSubtrees [][]byte `cbor:"6,keyasint"`
	Roots          [][]byte `cbor:"7,keyasint"`
}

// Snapshot captures the current tree state.
func (t *Tree) Snapshot() *Snapshot {
	filled := make([][]byte, len(t.filledSubtrees))
	for i, h := range t.filledSubtrees {
		filled[i] = h.Bytes()
	}
	roots := make([][]byte, len(t.roots))
	for i, h := range t.roots {
		roots[i] = h.Bytes()
	}
	return &Snapshot{
		Hasher:         t.hasher.Name(),
		Depth:          t.depth,
		HistorySize:    t.historySize,
		NextIndex:      t.nextIndex,
		RootIndex:      t.rootIndex,
		FilledSubtrees: filled,
		Roots:          roots,
	}
}

// FromSnapshot rebuilds a tree from a stored snapshot.
func FromSnapshot(snap *Snapshot) (*Tree, error) {
	hasher, err := mixhash.New(snap.Hasher)
	if err != nil {
		return nil, fmt.Errorf("restore tree: %w", err)
	}
	t, err := New(hasher, snap.Depth, snap.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("restore tree: %w", err)
	}
	if len(snap.FilledSubtrees) != snap.Depth {
		return nil, fmt.Errorf("restore tree: %d filled subtrees for depth %d", len(snap.FilledSubtrees), snap.Depth)
	}
	if len(snap.Roots) != snap.HistorySize {
		return nil, fmt.Errorf("restore tree: %d roots for history size %d", len(snap.Roots), snap.HistorySize)
	}
	if snap.NextIndex > t.Capacity() {
		return nil, fmt.Errorf("restore tree: leaf count %d exceeds capacity %d", snap.NextIndex, t.Capacity())
	}
	if snap.RootIndex >= uint64(snap.HistorySize) {
		return nil, fmt.Errorf("restore tree: root index %d outside history of size %d", snap.RootIndex, snap.HistorySize)
	}
	for i, b := range snap.FilledSubtrees {
		if t.filledSubtrees[i], err = mixhash.FromBytes(b); err != nil {
			return nil, fmt.Errorf("restore tree: filled subtree %d: %w", i, err)
		}
	}
	for i, b := range snap.Roots {
		if t.roots[i], err = mixhash.FromBytes(b); err != nil {
			return nil, fmt.Errorf("restore tree: root %d: %w", i, err)
		}
	}
	t.nextIndex = snap.NextIndex
	t.rootIndex = snap.RootIndex
	return t, nil
}
