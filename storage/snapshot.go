package storage

import (
	"errors"
	"fmt"

	"github.com/slushie/slushie-node/tree"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// SaveTreeSnapshot stores the latest accumulator snapshot, replacing any
// previous one.
func (s *Storage) SaveTreeSnapshot(snap *tree.Snapshot) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	data, err := EncodeArtifact(snap)
	if err != nil {
		return fmt.Errorf("failed to encode tree snapshot: %w", err)
	}
	wtx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), treeSnapshotPrefix)
	defer wtx.Discard()
	if err := wtx.Set(treeSnapshotKey, data); err != nil {
		return fmt.Errorf("failed to store tree snapshot: %w", err)
	}
	if err := wtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tree snapshot: %w", err)
	}
	return nil
}

// LoadTreeSnapshot returns the stored accumulator snapshot, or ErrNotFound
// when the node has never persisted one.
func (s *Storage) LoadTreeSnapshot() (*tree.Snapshot, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	reader := prefixeddb.NewPrefixedReader(s.db, treeSnapshotPrefix)
	data, err := reader.Get(treeSnapshotKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load tree snapshot: %w", err)
	}
	snap := &tree.Snapshot{}
	if err := DecodeArtifact(data, snap); err != nil {
		return nil, fmt.Errorf("failed to decode tree snapshot: %w", err)
	}
	return snap, nil
}
