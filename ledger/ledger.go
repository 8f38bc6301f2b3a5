// Package ledger implements the accounting core of the mixer: a
// fixed-denomination deposit/withdraw state machine composing the commitment
// accumulator, the persistent nullifier registry and an external funds
// custody collaborator.
//
// Authorization model: a withdrawal proves only that the claimed root was
// recently produced by the accumulator, not that the revealed nullifier
// corresponds to a commitment inserted under it. This reproduces the
// accounting model of the original pool contract; binding withdrawals to a
// specific anonymous deposit requires a zero-knowledge membership proof,
// which is outside this core.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/slushie/slushie-node/crypto/hash/mixhash"
	"github.com/slushie/slushie-node/custody"
	"github.com/slushie/slushie-node/log"
	"github.com/slushie/slushie-node/storage"
	"github.com/slushie/slushie-node/tree"
	"github.com/slushie/slushie-node/types"
)

// Config holds the construction parameters of a mixer ledger. All of them
// are fixed for the lifetime of the ledger; reopening a node with a config
// that does not match the persisted state fails.
type Config struct {
	// DepositSize is the fixed denomination every deposit and withdrawal
	// moves.
	DepositSize *types.BigInt
	// Hasher is the accumulator hash backend name (mixhash.Type*).
	Hasher string
	// Depth is the accumulator depth; capacity is 2^Depth.
	Depth int
	// HistorySize is the number of recent roots accepted at withdrawal.
	HistorySize int
}

// Store is the persistence surface the ledger consumes from the storage
// layer.
type Store interface {
	LoadTreeSnapshot() (*tree.Snapshot, error)
	SaveTreeSnapshot(snap *tree.Snapshot) error
	PushFact(fact *types.Fact) error
	SpendNullifier(nullifier types.HexBytes, fact *types.Fact) (*storage.SpendTx, error)
}

// Ledger is the mixer orchestrator. All state transitions go through
// Deposit and Withdraw, serialized by a single mutex: the whole
// check-and-act sequence of each operation, including the custody value
// attachment of a deposit, runs inside one critical section, so neither the
// nullifier check-then-mark nor the attach-validate-settle sequence can
// race.
type Ledger struct {
	mu          sync.Mutex
	tree        *tree.Tree
	store       Store
	custody     custody.Ledger
	depositSize *types.BigInt
}

// New creates a mixer ledger, restoring the accumulator from storage when a
// snapshot exists.
func New(store Store, cust custody.Ledger, cfg Config) (*Ledger, error) {
	if cfg.DepositSize == nil || cfg.DepositSize.Cmp(types.NewInt(0)) <= 0 {
		return nil, fmt.Errorf("deposit size must be positive")
	}

	var accumulator *tree.Tree
	snap, err := store.LoadTreeSnapshot()
	switch {
	case err == nil:
		if snap.Hasher != cfg.Hasher || snap.Depth != cfg.Depth || snap.HistorySize != cfg.HistorySize {
			return nil, fmt.Errorf("persisted state uses hasher=%s depth=%d history=%d, configuration asks for hasher=%s depth=%d history=%d",
				snap.Hasher, snap.Depth, snap.HistorySize, cfg.Hasher, cfg.Depth, cfg.HistorySize)
		}
		if accumulator, err = tree.FromSnapshot(snap); err != nil {
			return nil, err
		}
		log.Infow("restored accumulator from storage",
			"leaves", accumulator.LeafCount(), "root", accumulator.Root().String())
	case errors.Is(err, storage.ErrNotFound):
		hasher, err := mixhash.New(cfg.Hasher)
		if err != nil {
			return nil, err
		}
		if accumulator, err = tree.New(hasher, cfg.Depth, cfg.HistorySize); err != nil {
			return nil, err
		}
		if err := store.SaveTreeSnapshot(accumulator.Snapshot()); err != nil {
			return nil, err
		}
		log.Infow("initialized empty accumulator",
			"hasher", cfg.Hasher, "depth", cfg.Depth, "history", cfg.HistorySize)
	default:
		return nil, err
	}

	return &Ledger{
		tree:        accumulator,
		store:       store,
		custody:     cust,
		depositSize: new(types.BigInt).SetBigInt(cfg.DepositSize.MathBigInt()),
	}, nil
}

// Deposit attaches the given value to the custody pool, validates it and
// accepts the commitment into the accumulator, returning the new root
// together with the index the commitment occupies. The whole sequence runs
// inside the ledger mutex, and every failure path unwinds completely: the
// attachment is reverted and the accumulator rolled back, so a failed
// deposit leaves tree and custody exactly as they were.
func (l *Ledger) Deposit(commitment mixhash.Hash, amount *types.BigInt) (mixhash.Hash, uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tree.LeafCount() == l.tree.Capacity() {
		return mixhash.ZeroHash, 0, ErrTreeFull
	}
	if amount == nil {
		return mixhash.ZeroHash, 0, fmt.Errorf("%w: no value attached, want %s",
			ErrInvalidTransferredAmount, l.depositSize)
	}
	if err := l.custody.AttachValue(amount); err != nil {
		return mixhash.ZeroHash, 0, fmt.Errorf("%w: %v", ErrInvalidTransferredAmount, err)
	}
	transferred := l.custody.TransferredAmount()
	if !transferred.Equal(l.depositSize) {
		l.custody.RevertAttached()
		return mixhash.ZeroHash, 0, fmt.Errorf("%w: got %s, want %s",
			ErrInvalidTransferredAmount, transferred, l.depositSize)
	}

	before := l.tree.Clone()
	index, err := l.tree.Insert(commitment)
	if err != nil {
		// Capacity was checked above; any error here is a defect.
		l.custody.RevertAttached()
		return mixhash.ZeroHash, 0, err
	}
	root := l.tree.Root()

	if err := l.store.SaveTreeSnapshot(l.tree.Snapshot()); err != nil {
		// The commitment must not stay in the live tree when it was never
		// made durable: a root the registry cannot replay after a restart
		// would still authorize withdrawals. Roll everything back.
		l.tree = before
		l.custody.RevertAttached()
		return mixhash.ZeroHash, 0, fmt.Errorf("deposit not persisted: %w", err)
	}
	l.custody.FinalizeAttached()

	fact := types.NewFact(types.FactDeposited, commitment.Bytes(), root.Bytes())
	if err := l.store.PushFact(fact); err != nil {
		// Facts are fire-and-forget for observers, never part of the
		// accounting state.
		log.Warnw("failed to record deposit fact", "error", err)
	}
	log.Debugw("deposit accepted", "index", index, "root", root.String())

	return root, index, nil
}

// Withdraw spends a nullifier against a recent root and pays the deposit
// size out to the recipient. The four checks (root known, funds available,
// nullifier unused, transfer accepted) run in order inside one critical
// section, and any failure leaves every piece of state unchanged: the
// nullifier mark is staged in a storage transaction that only commits once
// the payout has succeeded.
func (l *Ledger) Withdraw(nullifier mixhash.Hash, claimedRoot mixhash.Hash, recipient common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// The empty-tree root stays inside the history window until it ages
	// out, but it describes a state with no deposits to pay out, so it
	// never authorizes a withdrawal.
	if claimedRoot == l.tree.EmptyRoot() || !l.tree.IsKnownRoot(claimedRoot) {
		return ErrUnknownRoot
	}
	if l.custody.Balance().Cmp(l.depositSize) < 0 {
		return ErrInsufficientFunds
	}

	fact := types.NewFact(types.FactWithdrawn, nullifier.Bytes(), claimedRoot.Bytes())
	spend, err := l.store.SpendNullifier(nullifier.Bytes(), fact)
	if err != nil {
		if errors.Is(err, storage.ErrNullifierUsed) {
			return ErrNullifierUsed
		}
		return err
	}

	if err := l.custody.Transfer(recipient, l.depositSize); err != nil {
		spend.Discard()
		if errors.Is(err, custody.ErrInsufficientFunds) {
			return ErrInsufficientFunds
		}
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := spend.Commit(); err != nil {
		// The payout has already happened; a commit failure means the
		// registry may accept this nullifier again after a restart.
		return fmt.Errorf("withdrawal paid but nullifier not persisted: %w", err)
	}
	log.Debugw("withdrawal settled", "recipient", recipient.Hex(), "root", claimedRoot.String())

	return nil
}

// CurrentRoot returns the most recent accumulator root.
func (l *Ledger) CurrentRoot() mixhash.Hash {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tree.Root()
}

// IsKnownRoot reports whether the root is still inside the trust window.
func (l *Ledger) IsKnownRoot(root mixhash.Hash) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tree.IsKnownRoot(root)
}

// LeafCount returns the number of deposits accepted so far.
func (l *Ledger) LeafCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tree.LeafCount()
}

// Capacity returns the maximum number of deposits the ledger can accept.
func (l *Ledger) Capacity() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tree.Capacity()
}

// DepositSize returns the fixed denomination of the pool.
func (l *Ledger) DepositSize() *types.BigInt {
	return new(types.BigInt).SetBigInt(l.depositSize.MathBigInt())
}

// Info describes the immutable shape of the ledger.
type Info struct {
	Hasher      string         `json:"hasher"`
	Depth       int            `json:"depth"`
	HistorySize int            `json:"historySize"`
	DepositSize *types.BigInt  `json:"depositSize"`
	LeafCount   uint64         `json:"leafCount"`
	Capacity    uint64         `json:"capacity"`
	Root        types.HexBytes `json:"root"`
}

// Info returns the ledger shape and current fill level.
func (l *Ledger) Info() Info {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Info{
		Hasher:      l.tree.HasherName(),
		Depth:       l.tree.Depth(),
		HistorySize: l.tree.HistorySize(),
		DepositSize: l.DepositSize(),
		LeafCount:   l.tree.LeafCount(),
		Capacity:    l.tree.Capacity(),
		Root:        l.tree.Root().Bytes(),
	}
}
