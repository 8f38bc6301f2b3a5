package ledger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/slushie/slushie-node/crypto/hash/mixhash"
	"github.com/slushie/slushie-node/custody"
	"github.com/slushie/slushie-node/storage"
	"github.com/slushie/slushie-node/tree"
	"github.com/slushie/slushie-node/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

var recipient = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func testConfig() Config {
	return Config{
		DepositSize: types.NewInt(13),
		Hasher:      mixhash.TypeBlake2b,
		Depth:       6,
		HistorySize: 30,
	}
}

func newTestLedger(t *testing.T, cfg Config) (*Ledger, *custody.MemLedger, *storage.Storage) {
	t.Helper()
	c := qt.New(t)

	database, err := metadb.New(db.TypePebble, t.TempDir())
	c.Assert(err, qt.IsNil)
	store := storage.New(database)
	t.Cleanup(store.Close)

	cust, err := custody.NewMemLedger(nil)
	c.Assert(err, qt.IsNil)

	led, err := New(store, cust, cfg)
	c.Assert(err, qt.IsNil)
	return led, cust, store
}

func commitment(b byte) mixhash.Hash {
	var h mixhash.Hash
	h[31] = b
	return h
}

func deposit(led *Ledger, com mixhash.Hash, amount int) (mixhash.Hash, error) {
	root, _, err := led.Deposit(com, types.NewInt(amount))
	return root, err
}

func TestDepositWithdrawScenario(t *testing.T) {
	c := qt.New(t)
	led, cust, _ := newTestLedger(t, testConfig())

	hasher, err := mixhash.New(mixhash.TypeBlake2b)
	c.Assert(err, qt.IsNil)
	emptyRoot := hasher.Zeros()[5]
	c.Assert(led.CurrentRoot(), qt.Equals, emptyRoot)

	commitmentA := commitment(0x0a)
	commitmentB := commitment(0x0b)

	r1, err := deposit(led, commitmentA, 13)
	c.Assert(err, qt.IsNil)
	c.Assert(r1, qt.Not(qt.Equals), emptyRoot)

	r2, err := deposit(led, commitmentB, 13)
	c.Assert(err, qt.IsNil)
	c.Assert(r2, qt.Not(qt.Equals), r1)
	c.Assert(led.CurrentRoot(), qt.Equals, r2)

	// A withdraws against the newer root R2: R2 is known even though A was
	// inserted earlier.
	c.Assert(led.Withdraw(commitmentA, r2, recipient), qt.IsNil)
	c.Assert(cust.Balance().String(), qt.Equals, "13")
	c.Assert(cust.AccountBalance(recipient).String(), qt.Equals, "13")

	// Replay of the same nullifier is rejected and the balance does not
	// move again.
	err = led.Withdraw(commitmentA, r2, recipient)
	c.Assert(err, qt.ErrorIs, ErrNullifierUsed)
	c.Assert(cust.Balance().String(), qt.Equals, "13")

	// The empty-tree root never authorizes a withdrawal.
	err = led.Withdraw(commitmentB, emptyRoot, recipient)
	c.Assert(err, qt.ErrorIs, ErrUnknownRoot)
}

func TestDepositWrongAmount(t *testing.T) {
	c := qt.New(t)
	led, cust, _ := newTestLedger(t, testConfig())

	rootBefore := led.CurrentRoot()
	_, err := deposit(led, commitment(0x01), 77)
	c.Assert(err, qt.ErrorIs, ErrInvalidTransferredAmount)

	// No state was mutated: same root, no leaves, value returned.
	c.Assert(led.CurrentRoot(), qt.Equals, rootBefore)
	c.Assert(led.LeafCount(), qt.Equals, uint64(0))
	c.Assert(cust.Balance().String(), qt.Equals, "0")

	// A rejection between two accepted deposits returns exactly the
	// rejected value, never an earlier depositor's.
	_, err = deposit(led, commitment(0x02), 13)
	c.Assert(err, qt.IsNil)
	_, err = deposit(led, commitment(0x03), 77)
	c.Assert(err, qt.ErrorIs, ErrInvalidTransferredAmount)
	c.Assert(led.LeafCount(), qt.Equals, uint64(1))
	c.Assert(cust.Balance().String(), qt.Equals, "13")

	// A deposit with no value attached at all is rejected the same way.
	_, _, err = led.Deposit(commitment(0x03), nil)
	c.Assert(err, qt.ErrorIs, ErrInvalidTransferredAmount)
	c.Assert(cust.Balance().String(), qt.Equals, "13")
}

// TestConcurrentDeposits interleaves accepted and rejected deposits across
// goroutines. Each deposit's attach-validate-settle sequence is one critical
// section, so a rejection must return its own value and never swallow a
// concurrent depositor's attachment into the pool.
func TestConcurrentDeposits(t *testing.T) {
	c := qt.New(t)
	led, cust, _ := newTestLedger(t, testConfig())

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := 13
			if i%2 == 1 {
				amount = 77
			}
			_, _, errs[i] = led.Deposit(commitment(byte(i+1)), types.NewInt(amount))
		}(i)
	}
	wg.Wait()

	accepted := 0
	for i, err := range errs {
		if i%2 == 1 {
			c.Assert(err, qt.ErrorIs, ErrInvalidTransferredAmount, qt.Commentf("deposit %d", i))
		} else {
			c.Assert(err, qt.IsNil, qt.Commentf("deposit %d", i))
			accepted++
		}
	}
	c.Assert(led.LeafCount(), qt.Equals, uint64(accepted))
	// The pool holds exactly the accepted denominations; every rejected
	// attachment was returned in full.
	c.Assert(cust.Balance().String(), qt.Equals, types.NewInt(13*accepted).String())
}

// failingStore makes snapshot persistence fail on demand.
type failingStore struct {
	*storage.Storage
	failSaves bool
}

func (f *failingStore) SaveTreeSnapshot(snap *tree.Snapshot) error {
	if f.failSaves {
		return fmt.Errorf("disk full")
	}
	return f.Storage.SaveTreeSnapshot(snap)
}

func TestDepositSnapshotPersistFailure(t *testing.T) {
	c := qt.New(t)

	database, err := metadb.New(db.TypePebble, t.TempDir())
	c.Assert(err, qt.IsNil)
	store := storage.New(database)
	t.Cleanup(store.Close)
	cust, err := custody.NewMemLedger(nil)
	c.Assert(err, qt.IsNil)

	fs := &failingStore{Storage: store}
	led, err := New(fs, cust, testConfig())
	c.Assert(err, qt.IsNil)

	rootBefore := led.CurrentRoot()
	fs.failSaves = true
	_, _, err = led.Deposit(commitment(0x01), types.NewInt(13))
	c.Assert(err, qt.IsNotNil)

	// Tree and custody agree that nothing happened: the commitment is not
	// in the live tree, no new root entered the window, the value went
	// back to the depositor.
	c.Assert(led.LeafCount(), qt.Equals, uint64(0))
	c.Assert(led.CurrentRoot(), qt.Equals, rootBefore)
	c.Assert(cust.Balance().String(), qt.Equals, "0")

	// Once persistence recovers the same commitment deposits cleanly.
	fs.failSaves = false
	root, index, err := led.Deposit(commitment(0x01), types.NewInt(13))
	c.Assert(err, qt.IsNil)
	c.Assert(index, qt.Equals, uint64(0))
	c.Assert(led.IsKnownRoot(root), qt.IsTrue)
}

func TestDepositUntilFull(t *testing.T) {
	c := qt.New(t)
	cfg := testConfig()
	cfg.Depth = 2
	led, _, _ := newTestLedger(t, cfg)

	for i := 0; i < 4; i++ {
		_, err := deposit(led, commitment(byte(i+1)), 13)
		c.Assert(err, qt.IsNil, qt.Commentf("deposit %d", i))
	}
	c.Assert(led.LeafCount(), qt.Equals, uint64(4))

	_, err := deposit(led, commitment(0x77), 13)
	c.Assert(err, qt.ErrorIs, ErrTreeFull)
	c.Assert(led.LeafCount(), qt.Equals, uint64(4))

	// Full pool still serves withdrawals.
	c.Assert(led.Withdraw(commitment(0x01), led.CurrentRoot(), recipient), qt.IsNil)
}

func TestWithdrawUnknownRoot(t *testing.T) {
	c := qt.New(t)
	led, _, _ := newTestLedger(t, testConfig())

	_, err := deposit(led, commitment(0x01), 13)
	c.Assert(err, qt.IsNil)

	var bogus mixhash.Hash
	bogus[0] = 0xff
	err = led.Withdraw(commitment(0x01), bogus, recipient)
	c.Assert(err, qt.ErrorIs, ErrUnknownRoot)

	// The all-zero sentinel is rejected as well.
	err = led.Withdraw(commitment(0x01), mixhash.ZeroHash, recipient)
	c.Assert(err, qt.ErrorIs, ErrUnknownRoot)
}

func TestWithdrawRootAgesOut(t *testing.T) {
	c := qt.New(t)
	cfg := testConfig()
	cfg.HistorySize = 3
	led, _, _ := newTestLedger(t, cfg)

	oldRoot, err := deposit(led, commitment(0x01), 13)
	c.Assert(err, qt.IsNil)

	for i := 0; i < 3; i++ {
		_, err := deposit(led, commitment(byte(0x10+i)), 13)
		c.Assert(err, qt.IsNil)
	}

	err = led.Withdraw(commitment(0x01), oldRoot, recipient)
	c.Assert(err, qt.ErrorIs, ErrUnknownRoot)
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	c := qt.New(t)
	led, cust, store := newTestLedger(t, testConfig())

	root, err := deposit(led, commitment(0x01), 13)
	c.Assert(err, qt.IsNil)

	// Drain the pool behind the ledger's back.
	c.Assert(cust.Transfer(recipient, types.NewInt(13)), qt.IsNil)

	err = led.Withdraw(commitment(0x01), root, recipient)
	c.Assert(err, qt.ErrorIs, ErrInsufficientFunds)

	// All-or-nothing: the nullifier was not consumed by the failure.
	used, err := store.HasNullifier(commitment(0x01).Bytes())
	c.Assert(err, qt.IsNil)
	c.Assert(used, qt.IsFalse)
}

func TestDepositFactsRecorded(t *testing.T) {
	c := qt.New(t)
	led, _, store := newTestLedger(t, testConfig())

	root, err := deposit(led, commitment(0x05), 13)
	c.Assert(err, qt.IsNil)
	c.Assert(led.Withdraw(commitment(0x05), root, recipient), qt.IsNil)

	facts, err := store.Facts(0)
	c.Assert(err, qt.IsNil)
	c.Assert(facts, qt.HasLen, 2)
	c.Assert(facts[0].Kind, qt.Equals, types.FactDeposited)
	c.Assert(facts[1].Kind, qt.Equals, types.FactWithdrawn)
	c.Assert(facts[0].Commitment.Equal(commitment(0x05).Bytes()), qt.IsTrue)
}

func TestRestartRestoresState(t *testing.T) {
	c := qt.New(t)

	database, err := metadb.New(db.TypePebble, t.TempDir())
	c.Assert(err, qt.IsNil)
	store := storage.New(database)
	t.Cleanup(store.Close)

	cust, err := custody.NewMemLedger(nil)
	c.Assert(err, qt.IsNil)

	led, err := New(store, cust, testConfig())
	c.Assert(err, qt.IsNil)

	root, err := deposit(led, commitment(0x01), 13)
	c.Assert(err, qt.IsNil)
	c.Assert(led.Withdraw(commitment(0x01), root, recipient), qt.IsNil)

	// A second ledger over the same storage sees the tree and the spent
	// nullifier.
	reopened, err := New(store, cust, testConfig())
	c.Assert(err, qt.IsNil)
	c.Assert(reopened.CurrentRoot(), qt.Equals, root)
	c.Assert(reopened.LeafCount(), qt.Equals, uint64(1))

	err = reopened.Withdraw(commitment(0x01), root, recipient)
	c.Assert(err, qt.ErrorIs, ErrNullifierUsed)

	// Reopening with a different shape is refused.
	cfg := testConfig()
	cfg.Depth = 7
	_, err = New(store, cust, cfg)
	c.Assert(err, qt.IsNotNil)
}

func TestNewValidatesDepositSize(t *testing.T) {
	c := qt.New(t)
	database, err := metadb.New(db.TypePebble, t.TempDir())
	c.Assert(err, qt.IsNil)
	store := storage.New(database)
	t.Cleanup(store.Close)
	cust, err := custody.NewMemLedger(nil)
	c.Assert(err, qt.IsNil)

	cfg := testConfig()
	cfg.DepositSize = nil
	_, err = New(store, cust, cfg)
	c.Assert(err, qt.IsNotNil)

	cfg.DepositSize = types.NewInt(0)
	_, err = New(store, cust, cfg)
	c.Assert(err, qt.IsNotNil)
}
