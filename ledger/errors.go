package ledger

import (
	"errors"

	"github.com/slushie/slushie-node/storage"
	"github.com/slushie/slushie-node/tree"
)

// Operation errors surfaced to callers. All of them are plain value returns;
// none is transient from the core's point of view, so there is no internal
// retry. ErrTreeFull and ErrNullifierUsed alias the underlying component
// errors so errors.Is works across layers.
var (
	// ErrTreeFull means the accumulator reached 2^depth deposits; the
	// condition is permanent for this ledger instance.
	ErrTreeFull = tree.ErrTreeFull
	// ErrInvalidTransferredAmount means the value attached to the deposit
	// differs from the pool denomination. No state was mutated; the caller
	// may resubmit with the correct value.
	ErrInvalidTransferredAmount = errors.New("transferred amount does not match the deposit size")
	// ErrUnknownRoot means the claimed root is outside the trust window or
	// was never produced. If the root simply aged out, the withdrawal is
	// permanently unserviceable under this model.
	ErrUnknownRoot = errors.New("unknown merkle root")
	// ErrInsufficientFunds means custody cannot satisfy the payout.
	ErrInsufficientFunds = errors.New("insufficient funds for withdrawal")
	// ErrNullifierUsed means a replay: the nullifier was already spent.
	ErrNullifierUsed = storage.ErrNullifierUsed
	// ErrTransferFailed wraps a custody rejection other than insufficient
	// funds (for example a recipient rejection).
	ErrTransferFailed = errors.New("custody transfer failed")
)
