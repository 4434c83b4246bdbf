package ledger

import (
	"github.com/guilledk/telos-works/worksmachine"
)

// Treasury holds the pooled funds. deposited == available + reserved + paid at all times.
type Treasury struct {
	Available worksmachine.Asset `json:"available_funds"`
	Reserved  worksmachine.Asset `json:"reserved_funds"`
	Deposited worksmachine.Asset `json:"deposited_funds"`
	Paid      worksmachine.Asset `json:"paid_funds"`
}

// Account is a participant balance. It is created on first credit and never removed.
// Earned is the part of Balance that came from payouts and fees.
type Account struct {
	Owner   worksmachine.Account `json:"owner"`
	Balance worksmachine.Asset   `json:"balance"`
	Earned  worksmachine.Asset   `json:"earned"`
}

type state struct {
	Treasury Treasury                         `json:"treasury"`
	Accounts map[worksmachine.Account]Account `json:"accounts"`
}

func (s state) copy() state {
	c := state{Treasury: s.Treasury, Accounts: make(map[worksmachine.Account]Account, len(s.Accounts))}
	for k, v := range s.Accounts {
		c.Accounts[k] = v
	}
	return c
}

//Kind641000 STATUS: DRAFT
//Deposit, Withdraw (641002) and Fund (641004) all carry a single amount.
type Kind641000 struct {
	Amount worksmachine.Asset `json:"amount"`
}
