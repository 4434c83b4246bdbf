package ballots

import (
	"github.com/guilledk/telos-works/consensus/tally"
	"github.com/guilledk/telos-works/worksmachine"
)

type Status string

const (
	Open   Status = "open"
	Closed Status = "closed"
)

// Ballot accumulates weighted votes for one proposal or milestone decision. Only totals and
// the set of accounts that already voted are kept.
type Ballot struct {
	Name      string                                `json:"ballot_name"`
	Proposal  string                                `json:"proposal_name"`
	Milestone int64                                 `json:"milestone_id"`
	Status    Status                                `json:"status"`
	Results   tally.Results                         `json:"results"`
	Supply    worksmachine.Asset                    `json:"supply"`
	Voters    map[worksmachine.Account]tally.Choice `json:"voters"`
	OpenedAt  int64                                 `json:"opened_at"`
	EndsAt    int64                                 `json:"ends_at"`
	Outcome   *tally.Outcome                        `json:"outcome,omitempty"`
	Refund    *tally.Outcome                        `json:"refund_outcome,omitempty"`
}

func (b Ballot) copy() Ballot {
	voters := make(map[worksmachine.Account]tally.Choice, len(b.Voters))
	for k, v := range b.Voters {
		voters[k] = v
	}
	b.Voters = voters
	return b
}

//Kind641200 STATUS: DRAFT
//Published by the vote source: one weighted vote on a ballot. Supply is the total eligible
//weight at the time of the vote.
type Kind641200 struct {
	Ballot string               `json:"ballot"`
	Voter  worksmachine.Account `json:"voter"`
	Weight worksmachine.Asset   `json:"weight"`
	Choice string               `json:"choice"`
	Supply worksmachine.Asset   `json:"supply"`
}
