package ledger

import (
	"fmt"
	"os"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sasha-s/go-deadlock"

	"github.com/guilledk/telos-works/database"
	"github.com/guilledk/telos-works/worksmachine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const Mind = "ledger"

type Store struct {
	data   state
	symbol string
	mutex  *deadlock.Mutex
	db     *database.Store
}

// New returns an empty ledger denominated in symbol.
func New(db *database.Store, symbol string) *Store {
	zero := worksmachine.NewAsset(0, symbol)
	return &Store{
		data: state{
			Treasury: Treasury{Available: zero, Reserved: zero, Deposited: zero, Paid: zero},
			Accounts: make(map[worksmachine.Account]Account),
		},
		symbol: symbol,
		mutex:  &deadlock.Mutex{},
		db:     db,
	}
}

// StartDb starts the database for this mind. It blocks until the database is ready to use.
func (s *Store) StartDb(terminate chan struct{}, wg *sync.WaitGroup) {
	ready := make(chan struct{})
	wg.Add(1)
	go s.start(terminate, wg, ready)
	<-ready
	worksmachine.LogCLI("Ledger Mind has started", 4)
}

func (s *Store) start(terminate chan struct{}, wg *sync.WaitGroup, ready chan struct{}) {
	defer wg.Done()
	if c, ok := s.db.Open(Mind, "current"); ok {
		s.restoreFromDisk(c)
	}
	close(ready)
	<-terminate
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.takeSnapshot()
	worksmachine.LogCLI("Ledger Mind has shut down", 4)
}

func (s *Store) restoreFromDisk(f *os.File) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var restored state
	err := json.NewDecoder(f).Decode(&restored)
	if err != nil {
		if err.Error() != "EOF" {
			worksmachine.LogCLI(err.Error(), 0)
		}
	} else {
		if restored.Accounts == nil {
			restored.Accounts = make(map[worksmachine.Account]Account)
		}
		if err := restored.check(); err != nil {
			worksmachine.LogCLI(fmt.Sprintf("ledger on disk is corrupt: %s", err.Error()), 0)
		} else {
			s.data = restored
		}
	}
	if err := f.Close(); err != nil {
		worksmachine.LogCLI(err.Error(), 1)
	}
}

// takeSnapshot calculates a hash of the current state and stores the state in the
// database, indexed by that hash and as current.
func (s *Store) takeSnapshot() worksmachine.HashSeq {
	hs := hashSeq(s.data)
	b, err := json.MarshalIndent(s.data, "", " ")
	if err != nil {
		worksmachine.LogCLI(err.Error(), 0)
		return hs
	}
	if err := s.db.Write(Mind, hs.Hash, b); err != nil {
		worksmachine.LogCLI(err.Error(), 1)
	}
	if err := s.db.Write(Mind, "current", b); err != nil {
		worksmachine.LogCLI(err.Error(), 1)
	}
	return hs
}

func hashSeq(st state) (hs worksmachine.HashSeq) {
	hs.Mind = Mind
	var sortedAccounts []worksmachine.Account
	for account := range st.Accounts {
		sortedAccounts = append(sortedAccounts, account)
	}
	sort.Slice(sortedAccounts, func(i, j int) bool {
		return sortedAccounts[i] > sortedAccounts[j]
	})
	toHash := []any{
		st.Treasury.Available,
		st.Treasury.Reserved,
		st.Treasury.Deposited,
		st.Treasury.Paid,
	}
	for _, account := range sortedAccounts {
		toHash = append(toHash, account, st.Accounts[account].Balance, st.Accounts[account].Earned.Amount)
	}
	for _, d := range toHash {
		if err := hs.AppendData(d); err != nil {
			worksmachine.LogCLI(err.Error(), 0)
		}
	}
	hs.S256()
	return
}

// check verifies the conservation identity and that nothing went negative.
func (st state) check() error {
	t := st.Treasury
	for _, a := range []worksmachine.Asset{t.Available, t.Reserved, t.Deposited, t.Paid} {
		if a.IsNegative() {
			return fmt.Errorf("%w: negative treasury pool %s", worksmachine.ErrState, a)
		}
	}
	if t.Available.Amount+t.Reserved.Amount+t.Paid.Amount != t.Deposited.Amount {
		return fmt.Errorf("%w: deposited %s != available %s + reserved %s + paid %s", worksmachine.ErrState, t.Deposited, t.Available, t.Reserved, t.Paid)
	}
	for owner, account := range st.Accounts {
		if account.Balance.IsNegative() {
			return fmt.Errorf("%w: negative balance for %s", worksmachine.ErrState, owner)
		}
		if account.Earned.IsNegative() || account.Earned.Amount > account.Balance.Amount {
			return fmt.Errorf("%w: earned %s out of range for %s", worksmachine.ErrState, account.Earned, owner)
		}
	}
	return nil
}

func (s *Store) Symbol() string {
	return s.symbol
}

func (s *Store) Treasury() Treasury {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.data.Treasury
}

func (s *Store) Account(owner worksmachine.Account) (Account, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	a, ok := s.data.Accounts[owner]
	return a, ok
}

func (s *Store) Accounts() map[worksmachine.Account]Account {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.data.copy().Accounts
}

func (s *Store) HashOfCurrentState() worksmachine.S256Hash {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return hashSeq(s.data).Hash
}
