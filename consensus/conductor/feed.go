package conductor

import (
	"github.com/sasha-s/go-deadlock"
)

// Committed describes a command after it has been applied.
type Committed struct {
	EventID  string `json:"event_id"`
	Kind     int64  `json:"kind"`
	Mind     string `json:"mind"`
	Signer   string `json:"pubkey"`
	Sequence int64  `json:"sequence"`
	Hash     string `json:"hash"`
	At       int64  `json:"created_at"`
}

const subscriberBuffer = 64

type subscribers struct {
	mutex  *deadlock.Mutex
	next   int
	chans  map[int]chan Committed
	closed bool
}

func newSubscribers() *subscribers {
	return &subscribers{mutex: &deadlock.Mutex{}, chans: make(map[int]chan Committed)}
}

// Subscribe returns a channel that receives every committed command from now on and a
// function that cancels the subscription. Slow subscribers miss events rather than block
// the conductor. The channel is closed on cancel or when the conductor shuts down.
func (c *Conductor) Subscribe() (<-chan Committed, func()) {
	s := c.subscribers
	s.mutex.Lock()
	defer s.mutex.Unlock()
	ch := make(chan Committed, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.next
	s.next++
	s.chans[id] = ch
	return ch, func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		if ch, ok := s.chans[id]; ok {
			delete(s.chans, id)
			close(ch)
		}
	}
}

func (s *subscribers) publish(c Committed) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, ch := range s.chans {
		select {
		case ch <- c:
		default:
		}
	}
}

func (s *subscribers) closeAll() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.closed = true
	for id, ch := range s.chans {
		delete(s.chans, id)
		close(ch)
	}
}
