package ballots

import (
	"fmt"

	"github.com/guilledk/telos-works/consensus/tally"
	"github.com/guilledk/telos-works/worksmachine"
)

const KindCastVote int64 = 641200

func init() {
	if err := worksmachine.RegisterMind([]int64{KindCastVote}, Mind); err != nil {
		worksmachine.LogCLI(err.Error(), 0)
	}
}

func (s *Store) HandleEvent(event worksmachine.Event) (h worksmachine.HashSeq, err error) {
	switch event.Kind {
	case KindCastVote:
		return s.handleVote(event)
	}
	return h, fmt.Errorf("%w: %d", worksmachine.ErrUnknownKind, event.Kind)
}

func (s *Store) handleVote(event worksmachine.Event) (h worksmachine.HashSeq, err error) {
	var unmarshalled Kind641200
	if err = json.Unmarshal([]byte(event.Content), &unmarshalled); err != nil {
		return h, fmt.Errorf("%w: %s", worksmachine.ErrMalformed, err.Error())
	}
	if len(unmarshalled.Voter) == 0 {
		unmarshalled.Voter = event.PubKey
	}
	if len(s.voteSource) > 0 {
		if event.PubKey != s.voteSource {
			return h, fmt.Errorf("%w: votes are only accepted from the vote source", worksmachine.ErrUnauthorized)
		}
	} else if unmarshalled.Voter != event.PubKey {
		return h, fmt.Errorf("%w: %s cannot vote for %s", worksmachine.ErrUnauthorized, event.PubKey, unmarshalled.Voter)
	}
	choice, err := tally.ParseChoice(unmarshalled.Choice)
	if err != nil {
		return h, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	b, ok := s.data[unmarshalled.Ballot]
	if !ok {
		return h, fmt.Errorf("%w: ballot %s", worksmachine.ErrNotFound, unmarshalled.Ballot)
	}
	if b.Status != Open {
		return h, fmt.Errorf("%w: ballot %s is %s", worksmachine.ErrInvalidStatus, b.Name, b.Status)
	}
	if _, voted := b.Voters[unmarshalled.Voter]; voted {
		return h, fmt.Errorf("%w: %s on %s", worksmachine.ErrAlreadyVoted, unmarshalled.Voter, b.Name)
	}
	if unmarshalled.Weight.Symbol != b.Results.Yes.Symbol {
		return h, fmt.Errorf("%w: vote weight must be in %s", worksmachine.ErrInvalidAmount, b.Results.Yes.Symbol)
	}
	b = b.copy()
	if b.Results, err = b.Results.Add(choice, unmarshalled.Weight); err != nil {
		return h, err
	}
	if unmarshalled.Supply.IsPositive() {
		if unmarshalled.Supply.Symbol != b.Results.Yes.Symbol {
			return h, fmt.Errorf("%w: supply must be in %s", worksmachine.ErrInvalidAmount, b.Results.Yes.Symbol)
		}
		b.Supply = unmarshalled.Supply
	}
	b.Voters[unmarshalled.Voter] = choice
	s.data[b.Name] = b
	return s.takeSnapshot(), nil
}
