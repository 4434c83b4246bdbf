package ledger

import (
	"fmt"

	"github.com/guilledk/telos-works/worksmachine"
)

// Txn stages ledger movements. Nothing is visible to readers until Commit. A Txn holds the
// ledger lock from Begin until Commit or Discard, so exactly one of them must be called.
type Txn struct {
	s      *Store
	staged state
	done   bool
}

func (s *Store) Begin() *Txn {
	s.mutex.Lock()
	return &Txn{s: s, staged: s.data.copy()}
}

// Commit checks the ledger identity on the staged state and publishes it.
func (t *Txn) Commit() (h worksmachine.HashSeq, err error) {
	if t.done {
		return h, fmt.Errorf("%w: transaction already finished", worksmachine.ErrState)
	}
	t.done = true
	defer t.s.mutex.Unlock()
	if err = t.staged.check(); err != nil {
		worksmachine.LogCLI(err.Error(), 1)
		return h, err
	}
	t.s.data = t.staged
	return t.s.takeSnapshot(), nil
}

// Discard drops everything staged. It is safe to call after Commit.
func (t *Txn) Discard() {
	if t.done {
		return
	}
	t.done = true
	t.s.mutex.Unlock()
}

func (t *Txn) Treasury() Treasury {
	return t.staged.Treasury
}

func (t *Txn) Balance(owner worksmachine.Account) worksmachine.Asset {
	if a, ok := t.staged.Accounts[owner]; ok {
		return a.Balance
	}
	return worksmachine.NewAsset(0, t.s.symbol)
}

func (t *Txn) validAmount(amount worksmachine.Asset) error {
	if amount.Symbol != t.s.symbol {
		return fmt.Errorf("%w: expected %s, got %s", worksmachine.ErrInvalidAmount, t.s.symbol, amount)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", worksmachine.ErrInvalidAmount, amount)
	}
	return nil
}

// credit adds to the owner's balance. Payouts also count towards Earned, the part of the
// balance that already left the treasury through paid.
func (t *Txn) credit(owner worksmachine.Account, amount worksmachine.Asset, payout bool) {
	a, ok := t.staged.Accounts[owner]
	if !ok {
		a = Account{Owner: owner, Balance: worksmachine.NewAsset(0, t.s.symbol)}
	}
	a.Earned = worksmachine.NewAsset(a.Earned.Amount, t.s.symbol)
	a.Balance.Amount += amount.Amount
	if payout {
		a.Earned.Amount += amount.Amount
	}
	t.staged.Accounts[owner] = a
}

// Deposit credits the owner's balance together with deposited and available.
func (t *Txn) Deposit(owner worksmachine.Account, amount worksmachine.Asset) error {
	if err := t.validAmount(amount); err != nil {
		return err
	}
	t.credit(owner, amount, false)
	t.staged.Treasury.Deposited.Amount += amount.Amount
	t.staged.Treasury.Available.Amount += amount.Amount
	return nil
}

// Withdraw debits the owner's balance. Earned funds are spent first and leave without touching
// the treasury pools, they were accounted for in paid when released. The rest comes out of
// available and deposited, mirroring Deposit.
func (t *Txn) Withdraw(owner worksmachine.Account, amount worksmachine.Asset) error {
	if err := t.validAmount(amount); err != nil {
		return err
	}
	a, ok := t.staged.Accounts[owner]
	if !ok || a.Balance.Amount < amount.Amount {
		return fmt.Errorf("%w: %s has %s, wants %s", worksmachine.ErrInsufficientBalance, owner, t.Balance(owner), amount)
	}
	earned := worksmachine.NewAsset(a.Earned.Amount, t.s.symbol).Min(amount)
	fromTreasury, err := amount.Sub(earned)
	if err != nil {
		return err
	}
	if t.staged.Treasury.Available.Amount < fromTreasury.Amount {
		return fmt.Errorf("%w: available %s, wants %s", worksmachine.ErrInsufficientTreasury, t.staged.Treasury.Available, fromTreasury)
	}
	a.Balance.Amount -= amount.Amount
	a.Earned = worksmachine.NewAsset(a.Earned.Amount-earned.Amount, t.s.symbol)
	t.staged.Accounts[owner] = a
	t.staged.Treasury.Available.Amount -= fromTreasury.Amount
	t.staged.Treasury.Deposited.Amount -= fromTreasury.Amount
	return nil
}

// Fund adds to the treasury without crediting any participant.
func (t *Txn) Fund(amount worksmachine.Asset) error {
	if err := t.validAmount(amount); err != nil {
		return err
	}
	t.staged.Treasury.Deposited.Amount += amount.Amount
	t.staged.Treasury.Available.Amount += amount.Amount
	return nil
}

// Reserve moves funds from available to reserved.
func (t *Txn) Reserve(amount worksmachine.Asset) error {
	if err := t.validAmount(amount); err != nil {
		return err
	}
	if t.staged.Treasury.Available.Amount < amount.Amount {
		return fmt.Errorf("%w: available %s, wants to reserve %s", worksmachine.ErrInsufficientTreasury, t.staged.Treasury.Available, amount)
	}
	t.staged.Treasury.Available.Amount -= amount.Amount
	t.staged.Treasury.Reserved.Amount += amount.Amount
	return nil
}

func (t *Txn) payOut(to worksmachine.Account, amount worksmachine.Asset) error {
	if err := t.validAmount(amount); err != nil {
		return err
	}
	if t.staged.Treasury.Reserved.Amount < amount.Amount {
		return fmt.Errorf("%w: reserved %s, wants %s", worksmachine.ErrReserveUnderflow, t.staged.Treasury.Reserved, amount)
	}
	t.staged.Treasury.Reserved.Amount -= amount.Amount
	t.staged.Treasury.Paid.Amount += amount.Amount
	t.credit(to, amount, true)
	return nil
}

// ReleaseToProposer moves reserved funds to the proposer's balance, recorded in paid.
func (t *Txn) ReleaseToProposer(proposer worksmachine.Account, amount worksmachine.Asset) error {
	return t.payOut(proposer, amount)
}

// AssessFee moves a fee out of reserved into paid, credited to the fee sink.
func (t *Txn) AssessFee(sink worksmachine.Account, amount worksmachine.Asset) error {
	return t.payOut(sink, amount)
}

// RefundToTreasury returns reserved funds to available.
func (t *Txn) RefundToTreasury(amount worksmachine.Asset) error {
	if err := t.validAmount(amount); err != nil {
		return err
	}
	if t.staged.Treasury.Reserved.Amount < amount.Amount {
		return fmt.Errorf("%w: reserved %s, wants to refund %s", worksmachine.ErrReserveUnderflow, t.staged.Treasury.Reserved, amount)
	}
	t.staged.Treasury.Reserved.Amount -= amount.Amount
	t.staged.Treasury.Available.Amount += amount.Amount
	return nil
}

func (s *Store) single(op func(t *Txn) error) (worksmachine.HashSeq, error) {
	t := s.Begin()
	defer t.Discard()
	if err := op(t); err != nil {
		return worksmachine.HashSeq{}, err
	}
	return t.Commit()
}

func (s *Store) Deposit(owner worksmachine.Account, amount worksmachine.Asset) (worksmachine.HashSeq, error) {
	return s.single(func(t *Txn) error { return t.Deposit(owner, amount) })
}

func (s *Store) Withdraw(owner worksmachine.Account, amount worksmachine.Asset) (worksmachine.HashSeq, error) {
	return s.single(func(t *Txn) error { return t.Withdraw(owner, amount) })
}

func (s *Store) Fund(amount worksmachine.Asset) (worksmachine.HashSeq, error) {
	return s.single(func(t *Txn) error { return t.Fund(amount) })
}

func (s *Store) Reserve(amount worksmachine.Asset) (worksmachine.HashSeq, error) {
	return s.single(func(t *Txn) error { return t.Reserve(amount) })
}

func (s *Store) ReleaseToProposer(proposer worksmachine.Account, amount worksmachine.Asset) (worksmachine.HashSeq, error) {
	return s.single(func(t *Txn) error { return t.ReleaseToProposer(proposer, amount) })
}

func (s *Store) RefundToTreasury(amount worksmachine.Asset) (worksmachine.HashSeq, error) {
	return s.single(func(t *Txn) error { return t.RefundToTreasury(amount) })
}
