package tree

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/slushie/slushie-node/crypto/hash/mixhash"
)

func testHasher(t *testing.T) mixhash.Hasher {
	t.Helper()
	h, err := mixhash.New(mixhash.TypeBlake2b)
	qt.Assert(t, err, qt.IsNil)
	return h
}

func leaf(b byte) mixhash.Hash {
	var h mixhash.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func TestNewValidation(t *testing.T) {
	c := qt.New(t)
	hasher := testHasher(t)

	_, err := New(hasher, 0, 30)
	c.Assert(err, qt.ErrorIs, ErrDepthIsZero)

	_, err = New(hasher, mixhash.MaxDepth+1, 30)
	c.Assert(err, qt.ErrorIs, ErrDepthTooLong)

	_, err = New(hasher, 10, 0)
	c.Assert(err, qt.ErrorIs, ErrHistoryIsZero)

	tr, err := New(hasher, mixhash.MaxDepth, 30)
	c.Assert(err, qt.IsNil)
	c.Assert(tr.Depth(), qt.Equals, mixhash.MaxDepth)
}

func TestEmptyTreeRoot(t *testing.T) {
	c := qt.New(t)
	hasher := testHasher(t)
	zeros := hasher.Zeros()

	for _, depth := range []int{1, 2, 7, 20} {
		tr, err := New(hasher, depth, 30)
		c.Assert(err, qt.IsNil)
		c.Assert(tr.Root(), qt.Equals, zeros[depth-1], qt.Commentf("depth %d", depth))
		c.Assert(tr.IsKnownRoot(zeros[depth-1]), qt.IsTrue)
		c.Assert(tr.LeafCount(), qt.Equals, uint64(0))
	}
}

func TestInsertIndexes(t *testing.T) {
	c := qt.New(t)
	tr, err := New(testHasher(t), 2, 30)
	c.Assert(err, qt.IsNil)

	for i := 0; i < 4; i++ {
		index, err := tr.Insert(leaf(byte(i)))
		c.Assert(err, qt.IsNil)
		c.Assert(index, qt.Equals, uint64(i))
		c.Assert(tr.LeafCount(), qt.Equals, uint64(i+1))
	}
}

func TestInsertUpdatesRoot(t *testing.T) {
	c := qt.New(t)
	hasher := testHasher(t)
	zeros := hasher.Zeros()

	tr, err := New(hasher, 10, 30)
	c.Assert(err, qt.IsNil)

	_, err = tr.Insert(leaf(4))
	c.Assert(err, qt.IsNil)
	c.Assert(tr.Root(), qt.Not(qt.Equals), zeros[9])

	// The empty-tree root stays in the window after one insertion, but a
	// zeros entry of another level was never a root of this tree.
	c.Assert(tr.IsKnownRoot(zeros[9]), qt.IsTrue)
	c.Assert(tr.IsKnownRoot(zeros[4]), qt.IsFalse)
}

func TestCapacityExact(t *testing.T) {
	c := qt.New(t)
	tr, err := New(testHasher(t), 3, 30)
	c.Assert(err, qt.IsNil)

	// Exactly 2^3 insertions succeed, the 9th fails.
	for i := 0; i < 8; i++ {
		_, err := tr.Insert(leaf(byte(i + 1)))
		c.Assert(err, qt.IsNil, qt.Commentf("insertion %d", i))
	}
	_, err = tr.Insert(leaf(6))
	c.Assert(err, qt.ErrorIs, ErrTreeFull)

	// Still full on retry, and withdraw-side reads keep working.
	_, err = tr.Insert(leaf(7))
	c.Assert(err, qt.ErrorIs, ErrTreeFull)
	c.Assert(tr.IsKnownRoot(tr.Root()), qt.IsTrue)
}

func TestZeroSentinelNeverKnown(t *testing.T) {
	c := qt.New(t)
	tr, err := New(testHasher(t), 4, 4)
	c.Assert(err, qt.IsNil)

	c.Assert(tr.IsKnownRoot(mixhash.ZeroHash), qt.IsFalse)
	for i := 0; i < 16; i++ {
		_, err := tr.Insert(leaf(byte(i)))
		c.Assert(err, qt.IsNil)
		c.Assert(tr.IsKnownRoot(mixhash.ZeroHash), qt.IsFalse)
	}
}

func TestRootHistoryWindow(t *testing.T) {
	c := qt.New(t)
	const history = 5
	tr, err := New(testHasher(t), 10, history)
	c.Assert(err, qt.IsNil)

	_, err = tr.Insert(leaf(1))
	c.Assert(err, qt.IsNil)
	oldRoot := tr.Root()
	c.Assert(tr.IsKnownRoot(oldRoot), qt.IsTrue)

	// history-1 further insertions keep the root recognized...
	for i := 0; i < history-1; i++ {
		_, err := tr.Insert(leaf(byte(10 + i)))
		c.Assert(err, qt.IsNil)
		c.Assert(tr.IsKnownRoot(oldRoot), qt.IsTrue, qt.Commentf("after %d more insertions", i+1))
	}

	// ...and one more evicts it for good.
	_, err = tr.Insert(leaf(99))
	c.Assert(err, qt.IsNil)
	c.Assert(tr.IsKnownRoot(oldRoot), qt.IsFalse)
}

func TestEveryRecentRootKnown(t *testing.T) {
	c := qt.New(t)
	hasher := testHasher(t)
	tr, err := New(hasher, 10, 30)
	c.Assert(err, qt.IsNil)

	knownRoots := []mixhash.Hash{hasher.Zeros()[9]}
	for i := 0; i < 6; i++ {
		_, err := tr.Insert(leaf(byte(i * 2)))
		c.Assert(err, qt.IsNil)
		knownRoots = append(knownRoots, tr.Root())
	}
	for i, root := range knownRoots {
		c.Assert(tr.IsKnownRoot(root), qt.IsTrue, qt.Commentf("root %d", i))
	}
}

func TestRootsIndependentOfBackend(t *testing.T) {
	c := qt.New(t)
	for _, name := range []string{mixhash.TypeBlake2b, mixhash.TypePoseidon, mixhash.TypeMiMC} {
		hasher, err := mixhash.New(name)
		c.Assert(err, qt.IsNil)
		tr, err := New(hasher, 6, 30)
		c.Assert(err, qt.IsNil)

		// Same two insertions, reproducible root per backend.
		_, err = tr.Insert(leaf(1))
		c.Assert(err, qt.IsNil)
		_, err = tr.Insert(leaf(2))
		c.Assert(err, qt.IsNil)
		firstRun := tr.Root()

		tr2, err := New(hasher, 6, 30)
		c.Assert(err, qt.IsNil)
		_, err = tr2.Insert(leaf(1))
		c.Assert(err, qt.IsNil)
		_, err = tr2.Insert(leaf(2))
		c.Assert(err, qt.IsNil)
		c.Assert(tr2.Root(), qt.Equals, firstRun, qt.Commentf("backend %s", name))
	}
}

func TestClone(t *testing.T) {
	c := qt.New(t)
	tr, err := New(testHasher(t), 4, 4)
	c.Assert(err, qt.IsNil)

	_, err = tr.Insert(leaf(1))
	c.Assert(err, qt.IsNil)
	rootAtClone := tr.Root()
	clone := tr.Clone()

	// The clone is a frozen copy, unaffected by further insertions...
	_, err = tr.Insert(leaf(2))
	c.Assert(err, qt.IsNil)
	c.Assert(clone.Root(), qt.Equals, rootAtClone)
	c.Assert(clone.LeafCount(), qt.Equals, uint64(1))
	c.Assert(clone.IsKnownRoot(tr.Root()), qt.IsFalse)

	// ...and diverges independently.
	_, err = clone.Insert(leaf(3))
	c.Assert(err, qt.IsNil)
	c.Assert(clone.Root(), qt.Not(qt.Equals), tr.Root())
	c.Assert(tr.IsKnownRoot(clone.Root()), qt.IsFalse)
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := qt.New(t)
	tr, err := New(testHasher(t), 6, 8)
	c.Assert(err, qt.IsNil)

	var roots []mixhash.Hash
	for i := 0; i < 10; i++ {
		_, err := tr.Insert(leaf(byte(i * 3)))
		c.Assert(err, qt.IsNil)
		roots = append(roots, tr.Root())
	}

	restored, err := FromSnapshot(tr.Snapshot())
	c.Assert(err, qt.IsNil)
	c.Assert(restored.Root(), qt.Equals, tr.Root())
	c.Assert(restored.LeafCount(), qt.Equals, tr.LeafCount())
	c.Assert(restored.HasherName(), qt.Equals, tr.HasherName())
	for _, root := range roots[len(roots)-8:] {
		c.Assert(restored.IsKnownRoot(root), qt.IsTrue)
	}
	// Evicted roots stay evicted after a restore.
	c.Assert(restored.IsKnownRoot(roots[0]), qt.IsFalse)

	// The restored tree keeps accepting insertions consistently with the
	// original.
	i1, err := tr.Insert(leaf(0xaa))
	c.Assert(err, qt.IsNil)
	i2, err := restored.Insert(leaf(0xaa))
	c.Assert(err, qt.IsNil)
	c.Assert(i2, qt.Equals, i1)
	c.Assert(restored.Root(), qt.Equals, tr.Root())
}

func TestSnapshotValidation(t *testing.T) {
	c := qt.New(t)
	tr, err := New(testHasher(t), 4, 4)
	c.Assert(err, qt.IsNil)

	snap := tr.Snapshot()
	snap.Hasher = "keccak"
	_, err = FromSnapshot(snap)
	c.Assert(err, qt.IsNotNil)

	snap = tr.Snapshot()
	snap.Roots = snap.Roots[:2]
	_, err = FromSnapshot(snap)
	c.Assert(err, qt.IsNotNil)

	snap = tr.Snapshot()
	snap.NextIndex = 17
	_, err = FromSnapshot(snap)
	c.Assert(err, qt.IsNotNil)
}
