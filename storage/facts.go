package storage

import (
	"fmt"

	"github.com/slushie/slushie-node/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// PushFact appends a fact to the durable audit log. Facts are
// fire-and-forget records for external observers; failures here never
// affect the accounting state that produced them.
func (s *Storage) PushFact(fact *types.Fact) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	data, err := EncodeArtifact(fact)
	if err != nil {
		return fmt.Errorf("failed to encode fact: %w", err)
	}
	wtx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), factPrefix)
	defer wtx.Discard()
	if err := wtx.Set(factKey(fact), data); err != nil {
		return fmt.Errorf("failed to store fact: %w", err)
	}
	if err := wtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fact: %w", err)
	}
	s.factCache.Add(fact.ID.String(), fact)
	return nil
}

// Facts returns up to limit facts from the log in chronological order. A
// non-positive limit returns all of them.
func (s *Storage) Facts(limit int) ([]*types.Fact, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	var facts []*types.Fact
	reader := prefixeddb.NewPrefixedReader(s.db, factPrefix)
	var decodeErr error
	if err := reader.Iterate(nil, func(_, v []byte) bool {
		fact := &types.Fact{}
		if decodeErr = DecodeArtifact(v, fact); decodeErr != nil {
			return false
		}
		facts = append(facts, fact)
		return limit <= 0 || len(facts) < limit
	}); err != nil {
		return nil, fmt.Errorf("failed to iterate facts: %w", err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode fact: %w", decodeErr)
	}
	return facts, nil
}

// FactByID returns a single fact by its ID, trying the in-memory cache
// before scanning the log. Returns ErrNotFound when no fact matches.
func (s *Storage) FactByID(id string) (*types.Fact, error) {
	if fact, ok := s.factCache.Get(id); ok {
		return fact, nil
	}
	facts, err := s.Facts(0)
	if err != nil {
		return nil, err
	}
	for _, fact := range facts {
		if fact.ID.String() == id {
			s.factCache.Add(id, fact)
			return fact, nil
		}
	}
	return nil, ErrNotFound
}
