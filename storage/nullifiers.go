package storage

import (
	"errors"
	"fmt"

	"github.com/slushie/slushie-node/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// HasNullifier reports whether the nullifier has already been spent.
func (s *Storage) HasNullifier(nullifier types.HexBytes) (bool, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.hasNullifier(nullifier)
}

func (s *Storage) hasNullifier(nullifier types.HexBytes) (bool, error) {
	reader := prefixeddb.NewPrefixedReader(s.db, nullifierPrefix)
	_, err := reader.Get(nullifier)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check nullifier: %w", err)
	}
	return true, nil
}

// SpendTx is a staged nullifier spend. The mark (and the withdrawal fact
// recorded with it) becomes durable only on Commit; Discard drops both.
// This lets a withdrawal mark its nullifier before the payout while keeping
// the whole operation all-or-nothing when the payout fails.
type SpendTx struct {
	s    *Storage
	wtx  db.WriteTx
	fact *types.Fact
	done bool
}

// SpendNullifier checks that the nullifier is unused and stages the mark,
// together with the fact to record alongside it (which may be nil). Returns
// ErrNullifierUsed if the nullifier is already in the registry.
func (s *Storage) SpendNullifier(nullifier types.HexBytes, fact *types.Fact) (*SpendTx, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	used, err := s.hasNullifier(nullifier)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, ErrNullifierUsed
	}

	wtx := s.db.WriteTx()
	nwtx := prefixeddb.NewPrefixedWriteTx(wtx, nullifierPrefix)
	if err := nwtx.Set(nullifier, []byte{1}); err != nil {
		wtx.Discard()
		return nil, fmt.Errorf("failed to mark nullifier: %w", err)
	}
	if fact != nil {
		data, err := EncodeArtifact(fact)
		if err != nil {
			wtx.Discard()
			return nil, fmt.Errorf("failed to encode withdrawal fact: %w", err)
		}
		fwtx := prefixeddb.NewPrefixedWriteTx(wtx, factPrefix)
		if err := fwtx.Set(factKey(fact), data); err != nil {
			wtx.Discard()
			return nil, fmt.Errorf("failed to store withdrawal fact: %w", err)
		}
	}
	return &SpendTx{s: s, wtx: wtx, fact: fact}, nil
}

// Commit makes the staged spend durable.
func (tx *SpendTx) Commit() error {
	if tx.done {
		return fmt.Errorf("spend already finished")
	}
	tx.done = true
	if err := tx.wtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit nullifier spend: %w", err)
	}
	if tx.fact != nil {
		tx.s.factCache.Add(tx.fact.ID.String(), tx.fact)
	}
	return nil
}

// Discard drops the staged spend, leaving the registry unchanged.
func (tx *SpendTx) Discard() {
	if tx.done {
		return
	}
	tx.done = true
	tx.wtx.Discard()
}

// CountNullifiers returns the number of spent nullifiers in the registry.
func (s *Storage) CountNullifiers() (int, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	count := 0
	reader := prefixeddb.NewPrefixedReader(s.db, nullifierPrefix)
	if err := reader.Iterate(nil, func(_, _ []byte) bool {
		count++
		return true
	}); err != nil {
		return 0, fmt.Errorf("failed to iterate nullifiers: %w", err)
	}
	return count, nil
}
