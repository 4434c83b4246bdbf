package conductor

import (
	"errors"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/guilledk/telos-works/auxiliarium/ballots"
	"github.com/guilledk/telos-works/auxiliarium/proposals"
	"github.com/guilledk/telos-works/consensus/ledger"
	"github.com/guilledk/telos-works/consensus/policy"
	"github.com/guilledk/telos-works/worksmachine"
)

var ErrStopped = fmt.Errorf("%w: conductor is not accepting events", worksmachine.ErrState)

// HandleMessage is the entry point for all commands. The event must be signed by the
// account it acts for and carry that account's next sequence number. Nothing is committed
// unless the whole command succeeds.
func (c *Conductor) HandleMessage(e worksmachine.Event) (h worksmachine.HashSeq, err error) {
	<-c.ready
	started := time.Now()
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	defer func() {
		c.metrics.observe(e.Kind, err, time.Since(started))
		if err != nil {
			worksmachine.LogCLI(fmt.Sprintf("rejected event %s: %s", e.ID, err.Error()), 3)
			worksmachine.LogCLI(spew.Sdump(e), 5)
		}
	}()
	if c.stopped {
		return h, ErrStopped
	}
	if ok, sigErr := e.CheckSignature(); !ok {
		if sigErr != nil {
			return h, fmt.Errorf("%w: %s", worksmachine.ErrBadSignature, sigErr.Error())
		}
		return h, worksmachine.ErrBadSignature
	}
	mind, ok := worksmachine.WhichMindForKind(e.Kind)
	if !ok {
		return h, fmt.Errorf("%w: %d", worksmachine.ErrUnknownKind, e.Kind)
	}
	if err = c.sequence.Check(e.PubKey, e.Sequence()); err != nil {
		return h, err
	}
	if !c.bloom(e.ID) {
		return h, fmt.Errorf("%w: event %s has already been seen", worksmachine.ErrDuplicate, e.ID)
	}
	if h, err = c.handleEvent(mind, e, c.policy.Current()); err != nil {
		return h, err
	}
	if _, err = c.sequence.Advance(e.PubKey, e.Sequence()); err != nil {
		// Check passed under the same lock, so this means the sequence store is broken.
		worksmachine.LogCLI(err.Error(), 0)
		return h, err
	}
	h.EventID = e.ID
	h.CreatedAt = e.CreatedAt.Unix()
	c.metrics.observeTreasury(c.ledger.Treasury())
	c.subscribers.publish(Committed{
		EventID:  e.ID,
		Kind:     e.Kind,
		Mind:     mind,
		Signer:   e.PubKey,
		Sequence: e.Sequence(),
		Hash:     h.Hash,
		At:       h.CreatedAt,
	})
	return h, nil
}

func (c *Conductor) handleEvent(mind string, e worksmachine.Event, p policy.Policy) (h worksmachine.HashSeq, err error) {
	switch mind {
	case ledger.Mind:
		return c.ledger.HandleEvent(e)
	case ballots.Mind:
		return c.ballots.HandleEvent(e)
	case proposals.Mind:
		return c.proposals.HandleEvent(e, p)
	case policy.Mind:
		return c.policy.HandleEvent(e)
	}
	worksmachine.LogCLI(fmt.Sprintf("kind %d is registered to %s which the conductor does not route", e.Kind, mind), 1)
	return h, fmt.Errorf("%w: %d", worksmachine.ErrUnknownKind, e.Kind)
}

// Result is the label a command is counted under.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	switch {
	case errors.Is(err, worksmachine.ErrValidation):
		return "validation"
	case errors.Is(err, worksmachine.ErrState):
		return "state"
	case errors.Is(err, worksmachine.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, worksmachine.ErrNotFound):
		return "not_found"
	case errors.Is(err, worksmachine.ErrUnauthorized):
		return "unauthorized"
	}
	return "error"
}
