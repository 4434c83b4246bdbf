// Package eventers composes signed command events for the Conductor. Every event carries the
// signer's next sequence number in a "sequence" tag.
package eventers

import (
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stackerstan/go-nostr"

	"github.com/guilledk/telos-works/auxiliarium/ballots"
	"github.com/guilledk/telos-works/auxiliarium/proposals"
	"github.com/guilledk/telos-works/consensus/ledger"
	"github.com/guilledk/telos-works/consensus/policy"
	"github.com/guilledk/telos-works/worksmachine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Eventer signs commands for one wallet. Sequence is the last sequence number used, so the
// first event carries Sequence+1.
type Eventer struct {
	Wallet   worksmachine.Wallet
	Sequence int64
	// Now stamps created_at, time.Now when nil.
	Now func() time.Time
}

func New(wallet worksmachine.Wallet, lastSequence int64) *Eventer {
	return &Eventer{Wallet: wallet, Sequence: lastSequence}
}

// Command signs payload as an event of the given kind. The sequence is only consumed if
// signing succeeds.
func (e *Eventer) Command(kind int64, payload interface{}) (worksmachine.Event, error) {
	content, err := json.Marshal(payload)
	if err != nil {
		return worksmachine.Event{}, err
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	n := nostr.Event{
		CreatedAt: now(),
		Kind:      int(kind),
		Tags:      nostr.Tags{nostr.Tag{"sequence", strconv.FormatInt(e.Sequence+1, 10)}},
		Content:   string(content),
	}
	if err := worksmachine.SignEvent(&n, e.Wallet); err != nil {
		return worksmachine.Event{}, err
	}
	e.Sequence++
	return worksmachine.ConvertToInternalEvent(&n), nil
}

func (e *Eventer) Deposit(amount worksmachine.Asset) (worksmachine.Event, error) {
	return e.Command(ledger.KindDeposit, ledger.Kind641000{Amount: amount})
}

func (e *Eventer) Withdraw(amount worksmachine.Asset) (worksmachine.Event, error) {
	return e.Command(ledger.KindWithdraw, ledger.Kind641000{Amount: amount})
}

func (e *Eventer) Fund(amount worksmachine.Asset) (worksmachine.Event, error) {
	return e.Command(ledger.KindFund, ledger.Kind641000{Amount: amount})
}

func (e *Eventer) Draft(d proposals.Kind641100) (worksmachine.Event, error) {
	return e.Command(proposals.KindDraft, d)
}

func (e *Eventer) Edit(d proposals.Kind641102) (worksmachine.Event, error) {
	return e.Command(proposals.KindEdit, d)
}

func (e *Eventer) AddMilestone(proposal string, requested worksmachine.Asset) (worksmachine.Event, error) {
	return e.Command(proposals.KindAddMilestone, proposals.Kind641104{Name: proposal, Requested: requested})
}

func (e *Eventer) RemoveMilestone(proposal string) (worksmachine.Event, error) {
	return e.Command(proposals.KindRemoveMilestone, proposals.Kind641106{Name: proposal})
}

func (e *Eventer) Submit(proposal string) (worksmachine.Event, error) {
	return e.Command(proposals.KindSubmit, proposals.Kind641106{Name: proposal})
}

func (e *Eventer) Report(proposal string, milestone int64, report string) (worksmachine.Event, error) {
	return e.Command(proposals.KindReport, proposals.Kind641110{Name: proposal, Milestone: milestone, Report: report})
}

func (e *Eventer) Resolve(ballot string) (worksmachine.Event, error) {
	return e.Command(proposals.KindResolve, proposals.Kind641202{Ballot: ballot})
}

// Vote is published by the vote source on behalf of voter.
func (e *Eventer) Vote(v ballots.Kind641200) (worksmachine.Event, error) {
	return e.Command(ballots.KindCastVote, v)
}

func (e *Eventer) SetVersion(version string) (worksmachine.Event, error) {
	return e.Command(policy.KindSetVersion, policy.Kind641300{AppVersion: version})
}

func (e *Eventer) SetAdmin(admin worksmachine.Account) (worksmachine.Event, error) {
	return e.Command(policy.KindSetAdmin, policy.Kind641302{Admin: admin})
}
