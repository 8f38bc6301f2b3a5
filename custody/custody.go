// Package custody defines the funds-custody collaborator the mixer ledger
// delegates value transfer to, and provides an in-memory implementation
// backed by uint256 balances.
//
// The accounting core never moves value itself: it only checks the amount
// attached to a deposit, the pool balance before a withdrawal, and asks the
// custody ledger to pay out. Everything else (who holds the funds, how they
// settle) is the collaborator's business.
package custody

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/slushie/slushie-node/types"
)

var (
	// ErrInsufficientFunds is returned by Transfer when the pool does not
	// hold the requested amount.
	ErrInsufficientFunds = errors.New("insufficient funds in custody")
	// ErrAmountOverflow is returned when an amount does not fit in 256 bits.
	ErrAmountOverflow = errors.New("amount overflows 256 bits")
)

// Ledger is the external funds-custody contract the mixer core consumes.
// The attach/finalize/revert trio belongs to a single deposit; the mixer
// ledger runs the whole sequence inside its own mutex, so at most one
// attachment is in flight at a time.
type Ledger interface {
	// Balance returns the value currently held by the pool.
	Balance() *types.BigInt
	// TransferredAmount returns the value attached to the deposit call
	// currently being served, zero when none is attached.
	TransferredAmount() *types.BigInt
	// AttachValue credits the pool with the value sent along with a
	// deposit call and records it as the transferred amount.
	AttachValue(amount *types.BigInt) error
	// FinalizeAttached settles the in-flight attachment: the value stays
	// in the pool.
	FinalizeAttached()
	// RevertAttached returns the in-flight attachment to the depositor.
	RevertAttached()
	// Transfer pays amount out of the pool to the recipient. It fails on
	// insufficient funds or recipient rejection, leaving balances
	// unchanged.
	Transfer(recipient common.Address, amount *types.BigInt) error
}

// MemLedger is an in-memory custody ledger. The pool balance and per-account
// balances are tracked as 256-bit integers. It mimics the value-attachment
// semantics of a chain runtime: AttachValue credits the pool and records the
// attached amount, and the caller reverts the attachment if the deposit is
// rejected.
type MemLedger struct {
	mu          sync.Mutex
	pool        *uint256.Int
	transferred *uint256.Int
	accounts    map[common.Address]*uint256.Int
}

// NewMemLedger creates a custody ledger holding an initial pool balance.
func NewMemLedger(initial *types.BigInt) (*MemLedger, error) {
	pool := uint256.NewInt(0)
	if initial != nil {
		v, overflow := uint256.FromBig(initial.MathBigInt())
		if overflow {
			return nil, ErrAmountOverflow
		}
		pool = v
	}
	return &MemLedger{
		pool:        pool,
		transferred: uint256.NewInt(0),
		accounts:    make(map[common.Address]*uint256.Int),
	}, nil
}

// Balance returns the current pool balance.
func (m *MemLedger) Balance() *types.BigInt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(types.BigInt).SetBigInt(m.pool.ToBig())
}

// TransferredAmount returns the value attached to the in-flight deposit.
func (m *MemLedger) TransferredAmount() *types.BigInt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(types.BigInt).SetBigInt(m.transferred.ToBig())
}

// Transfer pays amount from the pool to the recipient account.
func (m *MemLedger) Transfer(recipient common.Address, amount *types.BigInt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, overflow := uint256.FromBig(amount.MathBigInt())
	if overflow {
		return ErrAmountOverflow
	}
	if m.pool.Lt(v) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, m.pool, v)
	}
	m.pool.Sub(m.pool, v)

	acc, ok := m.accounts[recipient]
	if !ok {
		acc = uint256.NewInt(0)
		m.accounts[recipient] = acc
	}
	acc.Add(acc, v)
	return nil
}

// AttachValue credits the pool with the value a depositor sends along with
// the deposit call and records it as the transferred amount. It must be
// paired with FinalizeAttached or RevertAttached.
func (m *MemLedger) AttachValue(amount *types.BigInt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, overflow := uint256.FromBig(amount.MathBigInt())
	if overflow {
		return ErrAmountOverflow
	}
	m.pool.Add(m.pool, v)
	m.transferred.Set(v)
	return nil
}

// FinalizeAttached settles a successful deposit: the attached value stays in
// the pool and the transferred marker is cleared.
func (m *MemLedger) FinalizeAttached() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transferred.Clear()
}

// RevertAttached undoes a rejected deposit attachment, returning the value
// to the depositor as a chain runtime would on revert.
func (m *MemLedger) RevertAttached() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pool.Sub(m.pool, m.transferred)
	m.transferred.Clear()
}

// AccountBalance returns the balance paid out to an account so far.
func (m *MemLedger) AccountBalance(account common.Address) *types.BigInt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[account]; ok {
		return new(types.BigInt).SetBigInt(acc.ToBig())
	}
	return types.NewInt(0)
}
