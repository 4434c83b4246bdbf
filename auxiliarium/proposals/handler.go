package proposals

import (
	"fmt"

	"github.com/guilledk/telos-works/consensus/ledger"
	"github.com/guilledk/telos-works/consensus/policy"
	"github.com/guilledk/telos-works/consensus/tally"
	"github.com/guilledk/telos-works/worksmachine"
)

const (
	KindDraft           int64 = 641100
	KindEdit            int64 = 641102
	KindAddMilestone    int64 = 641104
	KindRemoveMilestone int64 = 641106
	KindSubmit          int64 = 641108
	KindReport          int64 = 641110
	KindResolve         int64 = 641202
)

func init() {
	kinds := []int64{KindDraft, KindEdit, KindAddMilestone, KindRemoveMilestone, KindSubmit, KindReport, KindResolve}
	if err := worksmachine.RegisterMind(kinds, Mind); err != nil {
		worksmachine.LogCLI(err.Error(), 0)
	}
}

// HandleEvent runs one command against the policy snapshot p. Either every effect of the
// command is committed (ledger, ballots and proposal) or none is.
func (s *Store) HandleEvent(event worksmachine.Event, p policy.Policy) (h worksmachine.HashSeq, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	switch event.Kind {
	case KindDraft:
		return s.handleDraft(event, p)
	case KindEdit:
		return s.handleEdit(event)
	case KindAddMilestone:
		return s.handleAddMilestone(event, p)
	case KindRemoveMilestone:
		return s.handleRemoveMilestone(event, p)
	case KindSubmit:
		return s.handleSubmit(event, p)
	case KindReport:
		return s.handleReport(event, p)
	case KindResolve:
		return s.handleResolve(event, p)
	}
	return h, fmt.Errorf("%w: %d", worksmachine.ErrUnknownKind, event.Kind)
}

func unmarshal(event worksmachine.Event, v interface{}) error {
	if err := json.Unmarshal([]byte(event.Content), v); err != nil {
		return fmt.Errorf("%w: %s", worksmachine.ErrMalformed, err.Error())
	}
	return nil
}

func checkRequested(total worksmachine.Asset, p policy.Policy) error {
	if total.Symbol != p.Symbol {
		return fmt.Errorf("%w: expected %s, got %s", worksmachine.ErrInvalidAmount, p.Symbol, total)
	}
	if total.Cmp(p.MinRequested) < 0 || total.Cmp(p.MaxRequested) > 0 {
		return fmt.Errorf("%w: %s not within %s..%s", worksmachine.ErrRequestedOutOfBounds, total, p.MinRequested, p.MaxRequested)
	}
	return nil
}

func checkMilestoneCount(n int64, p policy.Policy) error {
	if n < p.MinMilestones || n > p.MaxMilestones {
		return fmt.Errorf("%w: %d milestones not within %d..%d", worksmachine.ErrMilestoneBoundExceeded, n, p.MinMilestones, p.MaxMilestones)
	}
	return nil
}

// ownDraft returns copies of a proposal and its milestones that the signer may still modify.
func (s *Store) ownDraft(name string, signer worksmachine.Account) (Proposal, []Milestone, error) {
	prop, ok := s.data.Proposals[name]
	if !ok {
		return prop, nil, fmt.Errorf("%w: proposal %s", worksmachine.ErrNotFound, name)
	}
	if prop.Proposer != signer {
		return prop, nil, fmt.Errorf("%w: only %s can modify %s", worksmachine.ErrUnauthorized, prop.Proposer, name)
	}
	if prop.Status != Drafting {
		return prop, nil, fmt.Errorf("%w: %s is %s", worksmachine.ErrInvalidStatus, name, prop.Status)
	}
	return prop.copy(), append([]Milestone(nil), s.data.Milestones[name]...), nil
}

func (s *Store) upsert(prop Proposal, ms []Milestone, at int64) worksmachine.HashSeq {
	prop.Sequence++
	prop.UpdatedAt = at
	s.data.Proposals[prop.Name] = prop
	s.data.Milestones[prop.Name] = ms
	return s.takeSnapshot()
}

func (s *Store) handleDraft(event worksmachine.Event, p policy.Policy) (h worksmachine.HashSeq, err error) {
	var u Kind641100
	if err = unmarshal(event, &u); err != nil {
		return
	}
	if err = checkName(u.Name); err != nil {
		return
	}
	if err = nonEmpty("title", u.Title); err != nil {
		return
	}
	if _, exists := s.data.Proposals[u.Name]; exists {
		return h, fmt.Errorf("%w: proposal %s", worksmachine.ErrDuplicate, u.Name)
	}
	if err = checkMilestoneCount(u.Milestones, p); err != nil {
		return
	}
	if err = checkRequested(u.TotalRequested, p); err != nil {
		return
	}
	part, remainder := u.TotalRequested.Div(u.Milestones)
	ms := make([]Milestone, u.Milestones)
	for i := range ms {
		requested := part
		if i == 0 {
			requested.Amount += remainder.Amount
		}
		ms[i] = Milestone{
			ProposalName:  u.Name,
			ID:            int64(i + 1),
			Status:        Queued,
			Requested:     requested,
			BallotResults: tally.ZeroResults(p.VoteSymbol),
			Paid:          worksmachine.NewAsset(0, p.Symbol),
		}
	}
	ms[0].BallotName = ballotName(u.Name, 1)
	now := event.CreatedAt.Unix()
	prop := Proposal{
		Name:             u.Name,
		Title:            u.Title,
		Description:      u.Description,
		Content:          u.Content,
		Proposer:         event.PubKey,
		Category:         u.Category,
		Status:           Drafting,
		CurrentBallot:    ballotName(u.Name, 1),
		Fee:              worksmachine.NewAsset(0, p.Symbol),
		TotalRequested:   u.TotalRequested,
		Remaining:        worksmachine.NewAsset(0, p.Symbol),
		Milestones:       u.Milestones,
		CurrentMilestone: 1,
		Keywords:         extractKeywords(u.Title, u.Description),
		Revisions:        []Revision{},
		CreatedAt:        now,
	}
	worksmachine.LogCLI(fmt.Sprintf("%s drafted proposal %s requesting %s", event.PubKey, u.Name, u.TotalRequested), 4)
	return s.upsert(prop, ms, now), nil
}

func (s *Store) handleEdit(event worksmachine.Event) (h worksmachine.HashSeq, err error) {
	var u Kind641102
	if err = unmarshal(event, &u); err != nil {
		return
	}
	prop, ms, err := s.ownDraft(u.Name, event.PubKey)
	if err != nil {
		return
	}
	now := event.CreatedAt.Unix()
	updates := 0
	if len(u.Title) > 0 && u.Title != prop.Title {
		prop.Title = u.Title
		updates++
	}
	if len(u.Description) > 0 && u.Description != prop.Description {
		prop.Description = u.Description
		updates++
	}
	if len(u.Category) > 0 && u.Category != prop.Category {
		prop.Category = u.Category
		updates++
	}
	if len(u.Content) > 0 && u.Content != prop.Content {
		prop.Revisions = append(prop.Revisions, Revision{
			Patch:  makeRevision(prop.Content, u.Content),
			Author: event.PubKey,
			At:     now,
		})
		prop.Content = u.Content
		updates++
	}
	if updates == 0 {
		return h, fmt.Errorf("%w: edit of %s changes nothing", worksmachine.ErrValidation, u.Name)
	}
	prop.Keywords = extractKeywords(prop.Title, prop.Description)
	return s.upsert(prop, ms, now), nil
}

func (s *Store) handleAddMilestone(event worksmachine.Event, p policy.Policy) (h worksmachine.HashSeq, err error) {
	var u Kind641104
	if err = unmarshal(event, &u); err != nil {
		return
	}
	prop, ms, err := s.ownDraft(u.Name, event.PubKey)
	if err != nil {
		return
	}
	if prop.Milestones+1 > p.MaxMilestones {
		return h, fmt.Errorf("%w: %s already has %d milestones", worksmachine.ErrMilestoneBoundExceeded, u.Name, prop.Milestones)
	}
	if u.Requested.Symbol != p.Symbol || !u.Requested.IsPositive() {
		return h, fmt.Errorf("%w: requested %s", worksmachine.ErrInvalidAmount, u.Requested)
	}
	var highest int64
	for _, m := range ms {
		if m.ID > highest {
			highest = m.ID
		}
	}
	ms = append(ms, Milestone{
		ProposalName:  u.Name,
		ID:            highest + 1,
		Status:        Queued,
		Requested:     u.Requested,
		BallotResults: tally.ZeroResults(p.VoteSymbol),
		Paid:          worksmachine.NewAsset(0, p.Symbol),
	})
	prop.Milestones++
	return s.upsert(prop, ms, event.CreatedAt.Unix()), nil
}

func (s *Store) handleRemoveMilestone(event worksmachine.Event, p policy.Policy) (h worksmachine.HashSeq, err error) {
	var u Kind641106
	if err = unmarshal(event, &u); err != nil {
		return
	}
	prop, ms, err := s.ownDraft(u.Name, event.PubKey)
	if err != nil {
		return
	}
	if prop.Milestones-1 < p.MinMilestones || len(ms) == 0 {
		return h, fmt.Errorf("%w: %s has only %d milestones", worksmachine.ErrMilestoneBoundExceeded, u.Name, prop.Milestones)
	}
	last := ms[len(ms)-1]
	if last.Status != Queued || last.ID == 1 {
		return h, fmt.Errorf("%w: milestone %d of %s is %s", worksmachine.ErrNotRemovable, last.ID, u.Name, last.Status)
	}
	ms = ms[:len(ms)-1]
	prop.Milestones--
	return s.upsert(prop, ms, event.CreatedAt.Unix()), nil
}

func (s *Store) handleSubmit(event worksmachine.Event, p policy.Policy) (h worksmachine.HashSeq, err error) {
	var u Kind641106
	if err = unmarshal(event, &u); err != nil {
		return
	}
	prop, ms, err := s.ownDraft(u.Name, event.PubKey)
	if err != nil {
		return
	}
	if err = checkMilestoneCount(prop.Milestones, p); err != nil {
		return
	}
	if err = checkRequested(prop.TotalRequested, p); err != nil {
		return
	}
	now := event.CreatedAt.Unix()
	name := ballotName(prop.Name, 1)
	if _, err = s.ballots.Open(name, prop.Name, 1, now, p.MilestoneLength, p.VoteSymbol); err != nil {
		return
	}
	prop.Status = Submitted
	prop.CurrentBallot = name
	ms[0].Status = Voting
	ms[0].BallotName = name
	worksmachine.LogCLI(fmt.Sprintf("proposal %s submitted, ballot %s is open", prop.Name, name), 4)
	return s.upsert(prop, ms, now), nil
}

// effects are applied once every check of a command has passed.
type effects struct {
	txn        *ledger.Txn
	moved      bool
	closing    string
	outcome    tally.Outcome
	refund     tally.Outcome
	opening    string
	openingFor int64
}

func (s *Store) apply(fx effects, prop Proposal, ms []Milestone, at int64, p policy.Policy) (h worksmachine.HashSeq, err error) {
	if fx.moved {
		if _, err = fx.txn.Commit(); err != nil {
			return
		}
	} else {
		fx.txn.Discard()
	}
	if len(fx.closing) > 0 {
		if _, err = s.ballots.Close(fx.closing, fx.outcome, fx.refund); err != nil {
			worksmachine.LogCLI(err.Error(), 1)
			return
		}
	}
	if len(fx.opening) > 0 {
		if _, err = s.ballots.Open(fx.opening, prop.Name, fx.openingFor, at, p.MilestoneLength, p.VoteSymbol); err != nil {
			worksmachine.LogCLI(err.Error(), 1)
			return
		}
	}
	return s.upsert(prop, ms, at), nil
}

// advance moves the proposal to its next milestone, staging the ballot that decides it, or
// completes the proposal and stages the refund of anything still held.
func (s *Store) advance(prop *Proposal, ms []Milestone, fx *effects) error {
	prop.CurrentMilestone++
	if prop.CurrentMilestone > prop.Milestones {
		prop.Status = Completed
		prop.CurrentBallot = ""
		return s.refundRemaining(prop, fx)
	}
	i := prop.CurrentMilestone - 1
	name := ballotName(prop.Name, ms[i].ID)
	if err := s.ballots.CanOpen(name); err != nil {
		return err
	}
	ms[i].Status = Voting
	ms[i].BallotName = name
	prop.CurrentBallot = name
	fx.opening = name
	fx.openingFor = ms[i].ID
	return nil
}

func (s *Store) refundRemaining(prop *Proposal, fx *effects) error {
	if !prop.Remaining.IsPositive() {
		return nil
	}
	if err := fx.txn.RefundToTreasury(prop.Remaining); err != nil {
		return err
	}
	fx.moved = true
	prop.Remaining.Amount = 0
	return nil
}

func (s *Store) handleReport(event worksmachine.Event, p policy.Policy) (h worksmachine.HashSeq, err error) {
	var u Kind641110
	if err = unmarshal(event, &u); err != nil {
		return
	}
	if err = nonEmpty("report", u.Report); err != nil {
		return
	}
	current, ok := s.data.Proposals[u.Name]
	if !ok {
		return h, fmt.Errorf("%w: proposal %s", worksmachine.ErrNotFound, u.Name)
	}
	if current.Proposer != event.PubKey {
		return h, fmt.Errorf("%w: only %s can report on %s", worksmachine.ErrUnauthorized, current.Proposer, u.Name)
	}
	if current.Status != Accepted {
		return h, fmt.Errorf("%w: %s is %s", worksmachine.ErrInvalidStatus, u.Name, current.Status)
	}
	if u.Milestone != current.CurrentMilestone {
		return h, fmt.Errorf("%w: %s is on milestone %d, not %d", worksmachine.ErrInvalidStatus, u.Name, current.CurrentMilestone, u.Milestone)
	}
	prop := current.copy()
	ms := append([]Milestone(nil), s.data.Milestones[u.Name]...)
	i := prop.CurrentMilestone - 1
	if ms[i].Status != Passed {
		return h, fmt.Errorf("%w: milestone %d of %s is %s", worksmachine.ErrInvalidStatus, u.Milestone, u.Name, ms[i].Status)
	}
	fx := effects{txn: s.ledger.Begin()}
	defer fx.txn.Discard()
	amount := ms[i].Requested.Min(prop.Remaining)
	if amount.IsPositive() {
		if err = fx.txn.ReleaseToProposer(prop.Proposer, amount); err != nil {
			return
		}
		fx.moved = true
		prop.Remaining.Amount -= amount.Amount
		ms[i].Paid = amount
	}
	ms[i].Status = Paid
	ms[i].Report = u.Report
	if err = s.advance(&prop, ms, &fx); err != nil {
		return
	}
	worksmachine.LogCLI(fmt.Sprintf("released %s to %s for milestone %d of %s", amount, prop.Proposer, u.Milestone, u.Name), 4)
	return s.apply(fx, prop, ms, event.CreatedAt.Unix(), p)
}

func (s *Store) handleResolve(event worksmachine.Event, p policy.Policy) (h worksmachine.HashSeq, err error) {
	var u Kind641202
	if err = unmarshal(event, &u); err != nil {
		return
	}
	b, outcome, refund, err := s.ballots.Evaluate(u.Ballot, p.Normal(), p.Refund())
	if err != nil {
		return
	}
	current, ok := s.data.Proposals[b.Proposal]
	if !ok {
		return h, fmt.Errorf("%w: proposal %s for ballot %s", worksmachine.ErrNotFound, b.Proposal, b.Name)
	}
	prop := current.copy()
	ms := append([]Milestone(nil), s.data.Milestones[b.Proposal]...)
	i := b.Milestone - 1
	if i < 0 || i >= int64(len(ms)) || ms[i].BallotName != b.Name || ms[i].Status != Voting {
		return h, fmt.Errorf("%w: ballot %s does not decide an open milestone", worksmachine.ErrInvalidStatus, b.Name)
	}
	fx := effects{txn: s.ledger.Begin(), closing: b.Name, outcome: outcome, refund: refund}
	defer fx.txn.Discard()
	ms[i].BallotResults = b.Results
	switch {
	case prop.Status == Submitted && b.Milestone == 1:
		err = s.resolveProposal(&prop, ms, &fx, outcome, refund, p)
	case prop.Status == Accepted && b.Milestone == prop.CurrentMilestone:
		err = s.resolveMilestone(&prop, ms, &fx, outcome, refund, p)
	default:
		err = fmt.Errorf("%w: %s is %s", worksmachine.ErrInvalidStatus, prop.Name, prop.Status)
	}
	if err != nil {
		return
	}
	worksmachine.LogCLI(fmt.Sprintf("ballot %s %s (turnout %.4f%%, approval %.4f%%), proposal %s is %s", b.Name, outcome.Verdict, outcome.Turnout, outcome.Approval, prop.Name, prop.Status), 4)
	return s.apply(fx, prop, ms, event.CreatedAt.Unix(), p)
}

// resolveProposal applies the proposal ballot. On acceptance the whole request is reserved
// and the fee is taken out of the reservation.
func (s *Store) resolveProposal(prop *Proposal, ms []Milestone, fx *effects, outcome, refund tally.Outcome, p policy.Policy) error {
	if !outcome.Passed() {
		prop.Status = Failed
		prop.CurrentBallot = ""
		prop.Refunded = refund.Passed()
		ms[0].Status = MilestoneFailed
		return nil
	}
	if err := fx.txn.Reserve(prop.TotalRequested); err != nil {
		return err
	}
	fee := p.Fee(prop.TotalRequested)
	if fee.IsPositive() {
		if err := fx.txn.AssessFee(p.FeeSink, fee); err != nil {
			return err
		}
	}
	fx.moved = true
	prop.Fee = fee
	prop.Remaining = worksmachine.NewAsset(prop.TotalRequested.Amount-fee.Amount, prop.TotalRequested.Symbol)
	prop.Status = Accepted
	ms[0].Status = Passed
	return nil
}

// resolveMilestone applies a later milestone ballot.
func (s *Store) resolveMilestone(prop *Proposal, ms []Milestone, fx *effects, outcome, refund tally.Outcome, p policy.Policy) error {
	i := prop.CurrentMilestone - 1
	if outcome.Passed() {
		ms[i].Status = Passed
		return nil
	}
	ms[i].Status = MilestoneFailed
	amount := ms[i].Requested.Min(prop.Remaining)
	if refund.Passed() && amount.IsPositive() {
		if err := fx.txn.RefundToTreasury(amount); err != nil {
			return err
		}
		fx.moved = true
		prop.Remaining.Amount -= amount.Amount
		ms[i].Refunded = true
		prop.Refunded = true
	}
	if p.HaltOnFailedMilestone {
		prop.Status = Failed
		prop.CurrentBallot = ""
		return s.refundRemaining(prop, fx)
	}
	return s.advance(prop, ms, fx)
}
