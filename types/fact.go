package types

import (
	"time"

	"github.com/google/uuid"
)

// FactKind identifies the kind of accounting fact emitted by the mixer.
type FactKind string

const (
	// FactDeposited is emitted after a commitment has been accepted into
	// the accumulator.
	FactDeposited FactKind = "deposited"
	// FactWithdrawn is emitted after a nullifier has been spent and the
	// payout transferred.
	FactWithdrawn FactKind = "withdrawn"
)

// Fact is a record of a completed state-changing mixer operation, meant for
// external observers. Emission is fire-and-forget; facts are never read back
// by the accounting core itself.
type Fact struct {
	ID         uuid.UUID `json:"id" cbor:"1,keyasint"`
	Kind       FactKind  `json:"kind" cbor:"2,keyasint"`
	Commitment HexBytes  `json:"commitment" cbor:"3,keyasint"`
	Root       HexBytes  `json:"root,omitempty" cbor:"4,keyasint,omitempty"`
	Timestamp  time.Time `json:"timestamp" cbor:"5,keyasint"`
}

// NewFact builds a fact with a fresh random ID and the current time.
func NewFact(kind FactKind, commitment, root HexBytes) *Fact {
	return &Fact{
		ID:         uuid.New(),
		Kind:       kind,
		Commitment: commitment,
		Root:       root,
		Timestamp:  time.Now().UTC(),
	}
}
