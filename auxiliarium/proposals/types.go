package proposals

import (
	"github.com/guilledk/telos-works/consensus/tally"
	"github.com/guilledk/telos-works/worksmachine"
)

type Status string

const (
	Drafting  Status = "drafting"
	Submitted Status = "submitted"
	Accepted  Status = "accepted"
	Failed    Status = "failed"
	Completed Status = "completed"
)

type MilestoneStatus string

const (
	Queued          MilestoneStatus = "queued"
	Voting          MilestoneStatus = "voting"
	Passed          MilestoneStatus = "passed"
	MilestoneFailed MilestoneStatus = "failed"
	Paid            MilestoneStatus = "paid"
)

type Proposal struct {
	Name             string               `json:"proposal_name"`
	Title            string               `json:"title"`
	Description      string               `json:"description"`
	Content          string               `json:"content"`
	Proposer         worksmachine.Account `json:"proposer"`
	Category         string               `json:"category"`
	Status           Status               `json:"status"`
	CurrentBallot    string               `json:"current_ballot"`
	Fee              worksmachine.Asset   `json:"fee"`
	Refunded         bool                 `json:"refunded"`
	TotalRequested   worksmachine.Asset   `json:"total_requested"`
	Remaining        worksmachine.Asset   `json:"remaining"`
	Milestones       int64                `json:"milestones"`
	CurrentMilestone int64                `json:"current_milestone"`
	Keywords         []string             `json:"keywords"`
	Revisions        []Revision           `json:"revisions"`
	Sequence         int64                `json:"sequence"`
	CreatedAt        int64                `json:"created_at"`
	UpdatedAt        int64                `json:"updated_at"`
}

// Milestone is keyed by (ProposalName, ID). IDs start at 1.
type Milestone struct {
	ProposalName  string             `json:"proposal_name"`
	ID            int64              `json:"milestone_id"`
	Status        MilestoneStatus    `json:"status"`
	Requested     worksmachine.Asset `json:"requested"`
	Report        string             `json:"report"`
	BallotName    string             `json:"ballot_name"`
	BallotResults tally.Results      `json:"ballot_results"`
	Refunded      bool               `json:"refunded"`
	Paid          worksmachine.Asset `json:"paid"`
}

// Revision is a diff-match-patch of the proposal content made while drafting.
type Revision struct {
	Patch  string               `json:"patch"`
	Author worksmachine.Account `json:"author"`
	At     int64                `json:"at"`
}

func (p Proposal) copy() Proposal {
	p.Keywords = append([]string(nil), p.Keywords...)
	p.Revisions = append([]Revision(nil), p.Revisions...)
	return p
}

//Kind641100 STATUS: DRAFT
//Used for: drafting a new proposal. total_requested is split evenly over the milestones.
type Kind641100 struct {
	Name           string             `json:"proposal_name"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Content        string             `json:"content"`
	Category       string             `json:"category"`
	TotalRequested worksmachine.Asset `json:"total_requested"`
	Milestones     int64              `json:"milestones"`
}

//Kind641102 STATUS: DRAFT
//Used for: editing a proposal while drafting. Empty fields are left unchanged.
type Kind641102 struct {
	Name        string `json:"proposal_name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Category    string `json:"category"`
}

//Kind641104 STATUS: DRAFT
//Used for: appending a milestone while drafting.
type Kind641104 struct {
	Name      string             `json:"proposal_name"`
	Requested worksmachine.Asset `json:"requested"`
}

//Kind641106 STATUS: DRAFT
//Used for: removing the last milestone while drafting. Kind641108 (submit) has the same shape.
type Kind641106 struct {
	Name string `json:"proposal_name"`
}

//Kind641110 STATUS: DRAFT
//Used for: reporting on a passed milestone, which releases its funds.
type Kind641110 struct {
	Name      string `json:"proposal_name"`
	Milestone int64  `json:"milestone_id"`
	Report    string `json:"report"`
}

//Kind641202 STATUS: DRAFT
//Used for: closing a ballot and applying its outcome.
type Kind641202 struct {
	Ballot string `json:"ballot"`
}
