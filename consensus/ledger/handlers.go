package ledger

import (
	"fmt"

	"github.com/guilledk/telos-works/worksmachine"
)

const (
	KindDeposit  int64 = 641000
	KindWithdraw int64 = 641002
	KindFund     int64 = 641004
)

func init() {
	if err := worksmachine.RegisterMind([]int64{KindDeposit, KindWithdraw, KindFund}, Mind); err != nil {
		worksmachine.LogCLI(err.Error(), 0)
	}
}

// HandleEvent applies a deposit, withdraw or fund command signed by event.PubKey.
func (s *Store) HandleEvent(event worksmachine.Event) (h worksmachine.HashSeq, err error) {
	var unmarshalled Kind641000
	if err = json.Unmarshal([]byte(event.Content), &unmarshalled); err != nil {
		return h, fmt.Errorf("%w: %s", worksmachine.ErrMalformed, err.Error())
	}
	switch event.Kind {
	case KindDeposit:
		return s.Deposit(event.PubKey, unmarshalled.Amount)
	case KindWithdraw:
		return s.Withdraw(event.PubKey, unmarshalled.Amount)
	case KindFund:
		return s.Fund(unmarshalled.Amount)
	}
	return h, fmt.Errorf("%w: %d", worksmachine.ErrUnknownKind, event.Kind)
}
