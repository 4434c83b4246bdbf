package policy

import (
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sasha-s/go-deadlock"

	"github.com/guilledk/telos-works/database"
	"github.com/guilledk/telos-works/worksmachine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const Mind = "policy"

const (
	KindSetVersion int64 = 641300
	KindSetAdmin   int64 = 641302
)

func init() {
	if err := worksmachine.RegisterMind([]int64{KindSetVersion, KindSetAdmin}, Mind); err != nil {
		worksmachine.LogCLI(err.Error(), 0)
	}
}

type Store struct {
	data  Policy
	mutex *deadlock.Mutex
	db    *database.Store
}

// New returns a policy store seeded with genesis. Whatever was persisted on disk wins over
// genesis once StartDb runs.
func New(db *database.Store, genesis Policy) *Store {
	return &Store{data: genesis, mutex: &deadlock.Mutex{}, db: db}
}

// StartDb restores the policy from disk. It blocks until the store is ready to use.
func (s *Store) StartDb(terminate chan struct{}, wg *sync.WaitGroup) {
	ready := make(chan struct{})
	wg.Add(1)
	go s.start(terminate, wg, ready)
	<-ready
	worksmachine.LogCLI("Policy Mind has started", 4)
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
	worksmachine.LogCLI("Policy Mind has shut down", 4)
}

func (s *Store) restoreFromDisk(f *os.File) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var p Policy
	err := json.NewDecoder(f).Decode(&p)
	if err != nil {
		if err.Error() != "EOF" {
			worksmachine.LogCLI(err.Error(), 0)
		}
	} else {
		s.data = p
	}
	if err := f.Close(); err != nil {
		worksmachine.LogCLI(err.Error(), 1)
	}
}

// takeSnapshot hashes the current policy and persists it under that hash and as current.
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

func hashSeq(p Policy) (hs worksmachine.HashSeq) {
	hs.Mind = Mind
	toHash := []any{
		p.AppName,
		p.AppVersion,
		p.Admin,
		p.MinFee,
		p.MinMilestones,
		p.MaxMilestones,
		p.MilestoneLength,
		p.MinRequested,
		p.MaxRequested,
		p.FeeSink,
		p.HaltOnFailedMilestone,
		p.Symbol,
		p.VoteSymbol,
	}
	for _, th := range []float64{p.QuorumThreshold, p.ApprovalThreshold, p.QuorumRefundThreshold, p.ApprovalRefundThreshold, p.FeePercent} {
		toHash = append(toHash, int64(th*10000))
	}
	for _, d := range toHash {
		if err := hs.AppendData(d); err != nil {
			worksmachine.LogCLI(err.Error(), 0)
		}
	}
	hs.S256()
	return
}

// Current returns a copy of the policy in force.
func (s *Store) Current() Policy {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.data
}
