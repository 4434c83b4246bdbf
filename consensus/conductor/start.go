package conductor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sasha-s/go-deadlock"

	"github.com/guilledk/telos-works/auxiliarium/ballots"
	"github.com/guilledk/telos-works/auxiliarium/proposals"
	"github.com/guilledk/telos-works/consensus/ledger"
	"github.com/guilledk/telos-works/consensus/policy"
	"github.com/guilledk/telos-works/consensus/sequence"
	"github.com/guilledk/telos-works/database"
	"github.com/guilledk/telos-works/worksmachine"
)

type Options struct {
	// Genesis is the policy used until one is restored from disk.
	Genesis policy.Policy
	// VoteSource is the only account allowed to cast votes. Empty means anyone may vote for themselves.
	VoteSource worksmachine.Account
	// FallbackSupply is the eligible vote weight used until the vote source reports one.
	FallbackSupply worksmachine.Asset
	BloomCapacity  uint
	// Registry receives the conductor metrics. Nil means the metrics are kept but not exported.
	Registry prometheus.Registerer
}

// Conductor owns every Mind and is the single writer: commands are applied one at a time.
type Conductor struct {
	handlerMutex *deadlock.Mutex
	bloom        func(message interface{}) bool
	ready        chan struct{}
	stopped      bool

	policy    *policy.Store
	ledger    *ledger.Store
	ballots   *ballots.Store
	proposals *proposals.Store
	sequence  *sequence.Store

	metrics     *metrics
	subscribers *subscribers
}

func New(db *database.Store, opts Options) *Conductor {
	if opts.BloomCapacity == 0 {
		opts.BloomCapacity = 10000
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	l := ledger.New(db, opts.Genesis.Symbol)
	b := ballots.New(db, opts.VoteSource, opts.FallbackSupply)
	return &Conductor{
		handlerMutex: &deadlock.Mutex{},
		bloom:        worksmachine.MakeNewInverseBloomFilter(opts.BloomCapacity),
		ready:        make(chan struct{}),
		policy:       policy.New(db, opts.Genesis),
		ledger:       l,
		ballots:      b,
		proposals:    proposals.New(db, l, b),
		sequence:     sequence.New(db),
		metrics:      newMetrics(opts.Registry),
		subscribers:  newSubscribers(),
	}
}

// Start starts every Mind and blocks until the Conductor accepts events. The Conductor
// shuts down when terminate is closed and calls wg.Done once every Mind is safely on disk.
func (c *Conductor) Start(terminate chan struct{}, wg *sync.WaitGroup) {
	worksmachine.LogCLI("Starting the Conductor", 4)
	// Add a waitgroup delta to the calling function so it knows we are doing something
	wg.Add(1)
	go c.start(terminate, wg)
	<-c.ready
}

func (c *Conductor) start(terminate chan struct{}, wg *sync.WaitGroup) {
	// We need a local waitgroup to wait for our databases to shut down when terminating the application.
	databaseWg := &sync.WaitGroup{}
	// Databases are shut down only after the handlers have stopped.
	terminateDatabases := make(chan struct{})

	c.policy.StartDb(terminateDatabases, databaseWg)
	c.sequence.StartDb(terminateDatabases, databaseWg)
	c.ledger.StartDb(terminateDatabases, databaseWg)
	c.ballots.StartDb(terminateDatabases, databaseWg)
	// proposals restores last because it reads the ledger and the ballots
	c.proposals.StartDb(terminateDatabases, databaseWg)

	c.metrics.observeTreasury(c.ledger.Treasury())
	close(c.ready)
	worksmachine.LogCLI("Conductor: I'm now accepting Events", 4)
	<-terminate
	worksmachine.LogCLI("Conductor: I received terminate signal, shutting down", 4)
	// Wait for any in-flight command before the databases take their final snapshot.
	c.handlerMutex.Lock()
	c.stopped = true
	close(terminateDatabases)
	databaseWg.Wait()
	c.handlerMutex.Unlock()
	c.subscribers.closeAll()
	worksmachine.LogCLI("Conductor: shutdown complete", 4)
	// Finally, tell our caller (probably Main) that we have completely shut down
	wg.Done()
}

func (c *Conductor) Policy() policy.Policy {
	return c.policy.Current()
}

func (c *Conductor) Ledger() *ledger.Store {
	return c.ledger
}

func (c *Conductor) Ballots() *ballots.Store {
	return c.ballots
}

func (c *Conductor) Proposals() *proposals.Store {
	return c.proposals
}

// NextSequence is the sequence number the account's next command must carry.
func (c *Conductor) NextSequence(account worksmachine.Account) int64 {
	return c.sequence.GetSequence(account) + 1
}
