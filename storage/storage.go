/*
Package storage provides the persistent layer of the mixer node.

The storage uses a key-value database with prefixed namespaces to organize
the different kinds of data:

  - n/ : nullifier → 0x01 (spent-commitment registry; insert-once, no delete)
  - t/ : "snapshot" → CBOR-encoded accumulator snapshot (latest tree state)
  - f/ : timestamp+factID → CBOR-encoded fact (deposit/withdraw audit log)

The nullifier registry is the authoritative exactly-once guard: a nullifier
key, once written, is never deleted. Spends are staged in a write
transaction so the mark and its fact become visible only after the payout
has succeeded (all-or-nothing withdrawal).
*/
package storage

import (
	"encoding/binary"
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/slushie/slushie-node/log"
	"github.com/slushie/slushie-node/types"
	"go.vocdoni.io/dvote/db"
)

var (
	// ErrNotFound is returned when a requested artifact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNullifierUsed is returned when marking a nullifier that is
	// already present in the registry.
	ErrNullifierUsed = errors.New("nullifier already used")

	// Prefixes
	nullifierPrefix    = []byte("n/")
	treeSnapshotPrefix = []byte("t/")
	factPrefix         = []byte("f/")

	// treeSnapshotKey is the single key under treeSnapshotPrefix holding
	// the latest accumulator snapshot.
	treeSnapshotKey = []byte("snapshot")

	// factCacheSize bounds the in-memory cache of recently emitted facts.
	factCacheSize = 1024
)

// Storage manages the durable mixer state: the nullifier registry, the
// accumulator snapshot and the fact log.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
	factCache  *lru.Cache[string, *types.Fact]
}

// New creates a new Storage instance on top of the given database.
func New(database db.Database) *Storage {
	cache, err := lru.New[string, *types.Fact](factCacheSize)
	if err != nil {
		log.Fatalf("failed to create LRU cache: %v", err)
	}
	return &Storage{
		db:        database,
		factCache: cache,
	}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("failed to close the database", "error", err)
	}
}

// factKey builds an ordered key for a fact: big-endian unix nanoseconds
// followed by the first half of the fact ID to break ties.
func factKey(f *types.Fact) []byte {
	key := make([]byte, 8+8)
	binary.BigEndian.PutUint64(key[:8], uint64(f.Timestamp.UnixNano()))
	copy(key[8:], f.ID[:8])
	return key
}
