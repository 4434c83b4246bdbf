package ledger

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/guilledk/telos-works/database"
	"github.com/guilledk/telos-works/worksmachine"
)

const alice = "alice"
const bob = "bob"

func tlos(s string) worksmachine.Asset {
	return worksmachine.MustParseAsset(s + " TLOS")
}

func newLedger(t *testing.T) (*Store, *database.Store) {
	db, err := database.New(t.TempDir())
	require.NoError(t, err)
	return New(db, "TLOS"), db
}

func requireIdentity(t *testing.T, s *Store) {
	tr := s.Treasury()
	require.Equal(t, tr.Deposited.Amount, tr.Available.Amount+tr.Reserved.Amount+tr.Paid.Amount)
	for _, a := range []worksmachine.Asset{tr.Available, tr.Reserved, tr.Deposited, tr.Paid} {
		require.False(t, a.IsNegative())
	}
	for _, acc := range s.Accounts() {
		require.False(t, acc.Balance.IsNegative())
		require.False(t, acc.Earned.IsNegative())
		require.LessOrEqual(t, acc.Earned.Amount, acc.Balance.Amount)
	}
}

func TestDepositWithdraw(t *testing.T) {
	s, _ := newLedger(t)

	_, err := s.Deposit(alice, tlos("100.0000"))
	require.NoError(t, err)
	acc, ok := s.Account(alice)
	require.True(t, ok)
	assert.Equal(t, "100.0000 TLOS", acc.Balance.String())

	_, err = s.Withdraw(alice, tlos("50.0000"))
	require.NoError(t, err)
	acc, _ = s.Account(alice)
	assert.Equal(t, "50.0000 TLOS", acc.Balance.String())

	_, err = s.Withdraw(alice, tlos("60.0000"))
	assert.True(t, errors.Is(err, worksmachine.ErrInsufficientBalance))
	assert.True(t, errors.Is(err, worksmachine.ErrInsufficientFunds))
	acc, _ = s.Account(alice)
	assert.Equal(t, "50.0000 TLOS", acc.Balance.String())

	tr := s.Treasury()
	assert.Equal(t, "50.0000 TLOS", tr.Available.String())
	assert.Equal(t, "50.0000 TLOS", tr.Deposited.String())
	requireIdentity(t, s)
}

func TestInvalidAmounts(t *testing.T) {
	s, _ := newLedger(t)
	for _, a := range []worksmachine.Asset{tlos("0.0000"), worksmachine.NewAsset(-1, "TLOS"), worksmachine.MustParseAsset("1.0000 EOS")} {
		_, err := s.Deposit(alice, a)
		assert.True(t, errors.Is(err, worksmachine.ErrInvalidAmount), a.String())
	}
	_, ok := s.Account(alice)
	assert.False(t, ok)
}

func TestWithdrawNeedsAvailableFunds(t *testing.T) {
	s, _ := newLedger(t)
	_, err := s.Deposit(alice, tlos("100.0000"))
	require.NoError(t, err)
	_, err = s.Reserve(tlos("80.0000"))
	require.NoError(t, err)
	_, err = s.Withdraw(alice, tlos("30.0000"))
	assert.True(t, errors.Is(err, worksmachine.ErrInsufficientTreasury))
	requireIdentity(t, s)
}

func TestWithdrawEarnedFunds(t *testing.T) {
	s, _ := newLedger(t)
	_, err := s.Fund(tlos("1200.0000"))
	require.NoError(t, err)
	txn := s.Begin()
	require.NoError(t, txn.Reserve(tlos("1200.0000")))
	require.NoError(t, txn.AssessFee("sink", tlos("60.0000")))
	require.NoError(t, txn.ReleaseToProposer(bob, tlos("1140.0000")))
	_, err = txn.Commit()
	require.NoError(t, err)
	assert.Equal(t, "0.0000 TLOS", s.Treasury().Available.String())

	// nothing is available, the payout is still withdrawable
	_, err = s.Withdraw(bob, tlos("1000.0000"))
	require.NoError(t, err)
	acc, _ := s.Account(bob)
	assert.Equal(t, "140.0000 TLOS", acc.Balance.String())
	assert.Equal(t, "140.0000 TLOS", acc.Earned.String())

	_, err = s.Deposit(bob, tlos("100.0000"))
	require.NoError(t, err)
	_, err = s.Fund(tlos("500.0000"))
	require.NoError(t, err)
	_, err = s.Withdraw(bob, tlos("200.0000"))
	require.NoError(t, err)
	acc, _ = s.Account(bob)
	assert.Equal(t, "40.0000 TLOS", acc.Balance.String())
	assert.True(t, acc.Earned.IsZero())

	tr := s.Treasury()
	assert.Equal(t, "540.0000 TLOS", tr.Available.String())
	assert.Equal(t, "1740.0000 TLOS", tr.Deposited.String())
	assert.Equal(t, "1200.0000 TLOS", tr.Paid.String())
	requireIdentity(t, s)
}

func TestReserveReleaseRefund(t *testing.T) {
	s, _ := newLedger(t)
	_, err := s.Fund(tlos("1000.0000"))
	require.NoError(t, err)

	_, err = s.Reserve(tlos("1200.0000"))
	assert.True(t, errors.Is(err, worksmachine.ErrInsufficientTreasury))

	_, err = s.Reserve(tlos("600.0000"))
	require.NoError(t, err)
	_, err = s.ReleaseToProposer(bob, tlos("200.0000"))
	require.NoError(t, err)
	_, err = s.RefundToTreasury(tlos("100.0000"))
	require.NoError(t, err)

	_, err = s.ReleaseToProposer(bob, tlos("400.0000"))
	assert.True(t, errors.Is(err, worksmachine.ErrReserveUnderflow))
	_, err = s.RefundToTreasury(tlos("400.0000"))
	assert.True(t, errors.Is(err, worksmachine.ErrReserveUnderflow))

	tr := s.Treasury()
	assert.Equal(t, "500.0000 TLOS", tr.Available.String())
	assert.Equal(t, "300.0000 TLOS", tr.Reserved.String())
	assert.Equal(t, "200.0000 TLOS", tr.Paid.String())
	acc, ok := s.Account(bob)
	require.True(t, ok)
	assert.Equal(t, "200.0000 TLOS", acc.Balance.String())
	requireIdentity(t, s)
}

func TestTxnIsAllOrNothing(t *testing.T) {
	s, _ := newLedger(t)
	_, err := s.Fund(tlos("1000.0000"))
	require.NoError(t, err)
	before := s.HashOfCurrentState()

	txn := s.Begin()
	require.NoError(t, txn.Reserve(tlos("1000.0000")))
	require.NoError(t, txn.AssessFee("sink", tlos("50.0000")))
	assert.Equal(t, "950.0000 TLOS", txn.Treasury().Reserved.String())
	assert.Error(t, txn.ReleaseToProposer(bob, tlos("2000.0000")))
	txn.Discard()

	assert.Equal(t, before, s.HashOfCurrentState())
	assert.Equal(t, "1000.0000 TLOS", s.Treasury().Available.String())

	txn = s.Begin()
	require.NoError(t, txn.Reserve(tlos("1000.0000")))
	require.NoError(t, txn.AssessFee("sink", tlos("50.0000")))
	h, err := txn.Commit()
	require.NoError(t, err)
	assert.NotEqual(t, before, h.Hash)
	txn.Discard()
	_, err = txn.Commit()
	assert.Error(t, err)

	acc, _ := s.Account("sink")
	assert.Equal(t, "50.0000 TLOS", acc.Balance.String())
	requireIdentity(t, s)
}

func TestIdentityHoldsUnderRandomOperations(t *testing.T) {
	s, _ := newLedger(t)
	r := rand.New(rand.NewSource(42))
	owners := []worksmachine.Account{alice, bob, "carol"}
	for i := 0; i < 500; i++ {
		amount := worksmachine.NewAsset(r.Int63n(2000000)+1, "TLOS")
		owner := owners[r.Intn(len(owners))]
		switch r.Intn(6) {
		case 0:
			_, _ = s.Deposit(owner, amount)
		case 1:
			_, _ = s.Withdraw(owner, amount)
		case 2:
			_, _ = s.Fund(amount)
		case 3:
			_, _ = s.Reserve(amount)
		case 4:
			_, _ = s.ReleaseToProposer(owner, amount)
		case 5:
			_, _ = s.RefundToTreasury(amount)
		}
		requireIdentity(t, s)
	}
}

func TestHandleEvent(t *testing.T) {
	s, _ := newLedger(t)
	_, err := s.HandleEvent(worksmachine.Event{PubKey: alice, Kind: KindDeposit, Content: `{"amount":"10.0000 TLOS"}`})
	require.NoError(t, err)
	_, err = s.HandleEvent(worksmachine.Event{PubKey: alice, Kind: KindFund, Content: `{"amount":"5.0000 TLOS"}`})
	require.NoError(t, err)
	_, err = s.HandleEvent(worksmachine.Event{PubKey: alice, Kind: KindWithdraw, Content: `{"amount":"11.0000 TLOS"}`})
	assert.True(t, errors.Is(err, worksmachine.ErrInsufficientBalance))
	_, err = s.HandleEvent(worksmachine.Event{PubKey: alice, Kind: KindDeposit, Content: `{"amount":"10 TLOS"}`})
	assert.True(t, errors.Is(err, worksmachine.ErrValidation))

	assert.Equal(t, "15.0000 TLOS", s.Treasury().Deposited.String())
}

func TestLedgerSurvivesRestart(t *testing.T) {
	defer goleak.VerifyNone(t)
	s, db := newLedger(t)
	terminate := make(chan struct{})
	wg := &sync.WaitGroup{}
	s.StartDb(terminate, wg)
	_, err := s.Deposit(alice, tlos("42.0000"))
	require.NoError(t, err)
	hash := s.HashOfCurrentState()
	close(terminate)
	wg.Wait()

	restarted := New(db, "TLOS")
	terminate = make(chan struct{})
	restarted.StartDb(terminate, wg)
	assert.Equal(t, hash, restarted.HashOfCurrentState())
	acc, ok := restarted.Account(alice)
	require.True(t, ok)
	assert.Equal(t, "42.0000 TLOS", acc.Balance.String())
	close(terminate)
	wg.Wait()
}
