package proposals

import (
	"os"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sasha-s/go-deadlock"

	"github.com/guilledk/telos-works/auxiliarium/ballots"
	"github.com/guilledk/telos-works/consensus/ledger"
	"github.com/guilledk/telos-works/database"
	"github.com/guilledk/telos-works/worksmachine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const Mind = "proposals"

type state struct {
	Proposals  map[string]Proposal    `json:"proposals"`
	Milestones map[string][]Milestone `json:"milestones"`
}

type Store struct {
	data    state
	mutex   *deadlock.Mutex
	db      *database.Store
	ledger  *ledger.Store
	ballots *ballots.Store
}

// New wires the state machine to the ledger that holds the funds and the ballots that
// gate them.
func New(db *database.Store, l *ledger.Store, b *ballots.Store) *Store {
	return &Store{
		data: state{
			Proposals:  make(map[string]Proposal),
			Milestones: make(map[string][]Milestone),
		},
		mutex:   &deadlock.Mutex{},
		db:      db,
		ledger:  l,
		ballots: b,
	}
}

// StartDb starts the database for this mind. It blocks until the database is ready to use.
func (s *Store) StartDb(terminate chan struct{}, wg *sync.WaitGroup) {
	ready := make(chan struct{})
	wg.Add(1)
	go s.start(terminate, wg, ready)
	<-ready
	worksmachine.LogCLI("Proposals Mind has started", 4)
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
	worksmachine.LogCLI("Proposals Mind has shut down", 4)
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
		if restored.Proposals == nil {
			restored.Proposals = make(map[string]Proposal)
		}
		if restored.Milestones == nil {
			restored.Milestones = make(map[string][]Milestone)
		}
		s.data = restored
	}
	if err := f.Close(); err != nil {
		worksmachine.LogCLI(err.Error(), 1)
	}
}

// takeSnapshot calculates a hash (and gets the total sequence) at the current state. It also stores the state in the
//database, indexed by hash of the state. It returns the hash and sequence.
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
	var names []string
	for name := range st.Proposals {
		names = append(names, name)
	}
	sort.Strings(names)
	var toHash []any
	for _, name := range names {
		p := st.Proposals[name]
		hs.Sequence = hs.Sequence + p.Sequence
		toHash = append(toHash,
			p.Name,
			p.Title,
			p.Description,
			p.Content,
			p.Proposer,
			p.Category,
			string(p.Status),
			p.CurrentBallot,
			p.Fee,
			p.Refunded,
			p.TotalRequested,
			p.Remaining,
			p.Milestones,
			p.CurrentMilestone,
			p.Sequence)
		for _, m := range st.Milestones[name] {
			toHash = append(toHash,
				m.ID,
				string(m.Status),
				m.Requested,
				m.Report,
				m.BallotName,
				m.BallotResults.Yes,
				m.BallotResults.No,
				m.BallotResults.Abstain,
				m.Refunded,
				m.Paid)
		}
	}
	for _, d := range toHash {
		if err := hs.AppendData(d); err != nil {
			worksmachine.LogCLI(err.Error(), 0)
		}
	}
	hs.S256()
	return
}

func (s *Store) Get(name string) (Proposal, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	p, ok := s.data.Proposals[name]
	return p.copy(), ok
}

// All returns every proposal ordered by name.
func (s *Store) All() (all []Proposal) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, p := range s.data.Proposals {
		all = append(all, p.copy())
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})
	return
}

func (s *Store) Milestones(name string) ([]Milestone, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	ms, ok := s.data.Milestones[name]
	return append([]Milestone(nil), ms...), ok
}

func (s *Store) Milestone(name string, id int64) (Milestone, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, m := range s.data.Milestones[name] {
		if m.ID == id {
			return m, true
		}
	}
	return Milestone{}, false
}

func (s *Store) HashOfCurrentState() worksmachine.S256Hash {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return hashSeq(s.data).Hash
}
