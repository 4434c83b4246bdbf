package ballots

import (
	"fmt"
	"os"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sasha-s/go-deadlock"

	"github.com/guilledk/telos-works/consensus/tally"
	"github.com/guilledk/telos-works/database"
	"github.com/guilledk/telos-works/worksmachine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const Mind = "ballots"

type Store struct {
	data           map[string]Ballot
	voteSource     worksmachine.Account
	fallbackSupply worksmachine.Asset
	mutex          *deadlock.Mutex
	db             *database.Store
}

// New returns an empty ballot store. When voteSource is set only that account may publish
// votes. fallbackSupply is used for ballots that never received a supply from the vote source.
func New(db *database.Store, voteSource worksmachine.Account, fallbackSupply worksmachine.Asset) *Store {
	return &Store{
		data:           make(map[string]Ballot),
		voteSource:     voteSource,
		fallbackSupply: fallbackSupply,
		mutex:          &deadlock.Mutex{},
		db:             db,
	}
}

func (s *Store) StartDb(terminate chan struct{}, wg *sync.WaitGroup) {
	ready := make(chan struct{})
	wg.Add(1)
	go s.start(terminate, wg, ready)
	<-ready
	worksmachine.LogCLI("Ballots Mind has started", 4)
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
	worksmachine.LogCLI("Ballots Mind has shut down", 4)
}

func (s *Store) restoreFromDisk(f *os.File) {
	s.mutex.Lock()
	err := json.NewDecoder(f).Decode(&s.data)
	if err != nil {
		if err.Error() != "EOF" {
			worksmachine.LogCLI(err.Error(), 0)
		}
	}
	if s.data == nil {
		s.data = make(map[string]Ballot)
	}
	s.mutex.Unlock()
	if err = f.Close(); err != nil {
		worksmachine.LogCLI(err.Error(), 1)
	}
}

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

func hashSeq(m map[string]Ballot) (hs worksmachine.HashSeq) {
	hs.Mind = Mind
	var names []string
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	var toHash []any
	for _, name := range names {
		b := m[name]
		toHash = append(toHash,
			b.Name,
			b.Proposal,
			b.Milestone,
			string(b.Status),
			b.Results.Yes,
			b.Results.No,
			b.Results.Abstain,
			b.Supply,
			b.OpenedAt,
			b.EndsAt)
		var voters []string
		for voter := range b.Voters {
			voters = append(voters, voter)
		}
		sort.Strings(voters)
		toHash = append(toHash, voters)
		hs.Sequence += int64(len(voters))
	}
	for _, d := range toHash {
		if err := hs.AppendData(d); err != nil {
			worksmachine.LogCLI(err.Error(), 0)
		}
	}
	hs.S256()
	return
}

func (s *Store) Get(name string) (Ballot, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	b, ok := s.data[name]
	if !ok {
		return Ballot{}, false
	}
	return b.copy(), true
}

// All returns every ballot ordered by name.
func (s *Store) All() (all []Ballot) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, b := range s.data {
		all = append(all, b.copy())
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})
	return
}

// CanOpen reports whether a ballot with this name could be opened.
func (s *Store) CanOpen(name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, exists := s.data[name]; exists {
		return fmt.Errorf("%w: ballot %s", worksmachine.ErrDuplicate, name)
	}
	return nil
}

// Open starts a ballot for a proposal milestone. length is advisory, it only sets EndsAt.
func (s *Store) Open(name, proposal string, milestone int64, openedAt int64, length int64, voteSymbol string) (h worksmachine.HashSeq, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, exists := s.data[name]; exists {
		return h, fmt.Errorf("%w: ballot %s", worksmachine.ErrDuplicate, name)
	}
	supply := s.fallbackSupply
	if supply.Symbol != voteSymbol {
		supply = worksmachine.NewAsset(0, voteSymbol)
	}
	s.data[name] = Ballot{
		Name:      name,
		Proposal:  proposal,
		Milestone: milestone,
		Status:    Open,
		Results:   tally.ZeroResults(voteSymbol),
		Supply:    supply,
		Voters:    make(map[worksmachine.Account]tally.Choice),
		OpenedAt:  openedAt,
		EndsAt:    openedAt + length,
	}
	worksmachine.LogCLI(fmt.Sprintf("opened ballot %s for %s milestone %d", name, proposal, milestone), 4)
	return s.takeSnapshot(), nil
}

// Evaluate runs both threshold pairs over the ballot's current totals without closing it.
func (s *Store) Evaluate(name string, normal, refund tally.Thresholds) (b Ballot, passed, refunded tally.Outcome, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	b, ok := s.data[name]
	if !ok {
		return b, passed, refunded, fmt.Errorf("%w: ballot %s", worksmachine.ErrNotFound, name)
	}
	if b.Status != Open {
		return b, passed, refunded, fmt.Errorf("%w: ballot %s is %s", worksmachine.ErrInvalidStatus, name, b.Status)
	}
	passed = tally.Evaluate(b.Results, b.Supply, normal)
	refunded = tally.Evaluate(b.Results, b.Supply, refund)
	return b.copy(), passed, refunded, nil
}

// Close freezes the ballot with the outcomes that decided it.
func (s *Store) Close(name string, outcome, refund tally.Outcome) (h worksmachine.HashSeq, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	b, ok := s.data[name]
	if !ok {
		return h, fmt.Errorf("%w: ballot %s", worksmachine.ErrNotFound, name)
	}
	if b.Status != Open {
		return h, fmt.Errorf("%w: ballot %s is %s", worksmachine.ErrInvalidStatus, name, b.Status)
	}
	b.Status = Closed
	b.Outcome = &outcome
	b.Refund = &refund
	s.data[name] = b
	return s.takeSnapshot(), nil
}
