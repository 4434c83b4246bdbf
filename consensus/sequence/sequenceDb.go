package sequence

import (
	"os"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sasha-s/go-deadlock"

	"github.com/guilledk/telos-works/database"
	"github.com/guilledk/telos-works/worksmachine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const Mind = "sequence"

type Sequence struct {
	Account  worksmachine.Account `json:"account"`
	Sequence int64                `json:"sequence"`
}

type Store struct {
	data  map[worksmachine.Account]Sequence
	mutex *deadlock.Mutex
	db    *database.Store
}

func New(db *database.Store) *Store {
	return &Store{
		data:  make(map[worksmachine.Account]Sequence),
		mutex: &deadlock.Mutex{},
		db:    db,
	}
}

// StartDb starts the database for this mind. It blocks until the database is ready to use.
func (s *Store) StartDb(terminate chan struct{}, wg *sync.WaitGroup) {
	ready := make(chan struct{})
	// We add a delta to the provided waitgroup so that upstream knows when the database has been safely shut down
	wg.Add(1)
	go s.start(terminate, wg, ready)
	<-ready
	worksmachine.LogCLI("Sequence Mind has started", 4)
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
	worksmachine.LogCLI("Sequence Mind has shut down", 4)
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
		s.data = make(map[worksmachine.Account]Sequence)
	}
	s.mutex.Unlock()
	err = f.Close()
	if err != nil {
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
	if err := s.db.Write(Mind, "current", b); err != nil {
		worksmachine.LogCLI(err.Error(), 1)
	}
	return hs
}

func hashSeq(m map[worksmachine.Account]Sequence) (hs worksmachine.HashSeq) {
	hs.Mind = Mind
	var accounts []worksmachine.Account
	for account := range m {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i] > accounts[j]
	})
	var toHash []any
	for _, account := range accounts {
		seq := m[account]
		hs.Sequence = hs.Sequence + seq.Sequence
		toHash = append(toHash,
			seq.Account,
			seq.Sequence)
	}
	for _, d := range toHash {
		if err := hs.AppendData(d); err != nil {
			worksmachine.LogCLI(err, 0)
		}
	}
	hs.S256()
	return
}
