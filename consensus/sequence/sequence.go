package sequence

import (
	"fmt"

	"github.com/guilledk/telos-works/worksmachine"
)

//GetSequence SHOULD be called when producing an event locally.
//it MUST NOT be used to validate the current sequence.
func (s *Store) GetSequence(account worksmachine.Account) int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if seq, ok := s.data[account]; ok {
		return seq.Sequence
	}
	return 0
}

// Check returns an error unless next is exactly one above the account's last committed sequence.
func (s *Store) Check(account worksmachine.Account, next int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.check(account, next)
}

func (s *Store) check(account worksmachine.Account, next int64) error {
	if s.data[account].Sequence+1 != next {
		return fmt.Errorf("%w: %s is at %d, got %d", worksmachine.ErrBadSequence, account, s.data[account].Sequence, next)
	}
	return nil
}

// Advance records next as the account's last committed sequence.
func (s *Store) Advance(account worksmachine.Account, next int64) (h worksmachine.HashSeq, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err = s.check(account, next); err != nil {
		return h, err
	}
	s.data[account] = Sequence{Account: account, Sequence: next}
	return s.takeSnapshot(), nil
}

func (s *Store) AllSequences() (seqs []Sequence) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, seq := range s.data {
		seqs = append(seqs, seq)
	}
	return
}
