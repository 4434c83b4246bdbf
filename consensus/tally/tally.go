// Package tally decides ballots. Everything here is a pure function of its inputs so it can
// be called from any goroutine.
package tally

import (
	"fmt"
	"math/big"

	"github.com/guilledk/telos-works/worksmachine"
)

type Choice string

const (
	Yes     Choice = "yes"
	No      Choice = "no"
	Abstain Choice = "abstain"
)

func ParseChoice(s string) (Choice, error) {
	switch Choice(s) {
	case Yes, No, Abstain:
		return Choice(s), nil
	}
	return "", fmt.Errorf("%w: unknown vote choice %q", worksmachine.ErrValidation, s)
}

// Results are the weighted totals of a ballot.
type Results struct {
	Yes     worksmachine.Asset `json:"yes"`
	No      worksmachine.Asset `json:"no"`
	Abstain worksmachine.Asset `json:"abstain"`
}

func ZeroResults(symbol string) Results {
	zero := worksmachine.NewAsset(0, symbol)
	return Results{Yes: zero, No: zero, Abstain: zero}
}

func (r Results) Total() int64 {
	return r.Yes.Amount + r.No.Amount + r.Abstain.Amount
}

// Add returns the results with weight counted for choice.
func (r Results) Add(choice Choice, weight worksmachine.Asset) (Results, error) {
	if !weight.IsPositive() {
		return r, fmt.Errorf("%w: vote weight %s", worksmachine.ErrInvalidAmount, weight)
	}
	var err error
	switch choice {
	case Yes:
		r.Yes, err = r.Yes.Add(weight)
	case No:
		r.No, err = r.No.Add(weight)
	case Abstain:
		r.Abstain, err = r.Abstain.Add(weight)
	default:
		err = fmt.Errorf("%w: unknown vote choice %q", worksmachine.ErrValidation, choice)
	}
	return r, err
}

// Thresholds are percentages in [0, 100].
type Thresholds struct {
	Quorum   float64 `json:"quorum"`
	Approval float64 `json:"approval"`
}

type Verdict string

const (
	Passed Verdict = "passed"
	Failed Verdict = "failed"
)

type Outcome struct {
	Verdict Verdict `json:"verdict"`
	// Turnout and Approval are percentages, for display only. The verdict never depends on them.
	Turnout  float64 `json:"turnout"`
	Approval float64 `json:"approval"`
}

func (o Outcome) Passed() bool {
	return o.Verdict == Passed
}

func rat(f float64) *big.Rat {
	r := new(big.Rat)
	if r.SetFloat64(f) == nil {
		return new(big.Rat)
	}
	return r
}

// Evaluate applies the quorum and approval thresholds to the results. A ballot passes when
// turnout*100 >= quorum and approval*100 >= approval threshold, where turnout is
// (yes+no+abstain)/supply and approval is yes/(yes+no), 0 when nobody voted yes or no.
// The comparisons are done on exact rationals so a ballot sitting on a threshold passes.
func Evaluate(r Results, supply worksmachine.Asset, th Thresholds) (o Outcome) {
	o.Verdict = Failed
	total := big.NewRat(r.Total(), 1)
	decisive := r.Yes.Amount + r.No.Amount
	hundred := big.NewRat(100, 1)

	if supply.Amount > 0 {
		turnout := new(big.Rat).Mul(total, hundred)
		turnout.Quo(turnout, big.NewRat(supply.Amount, 1))
		o.Turnout, _ = turnout.Float64()
	}
	approval := new(big.Rat)
	if decisive > 0 {
		approval.SetFrac64(r.Yes.Amount, decisive)
		approval.Mul(approval, hundred)
		o.Approval, _ = approval.Float64()
	}
	if supply.Amount <= 0 {
		return
	}
	// total*100 >= quorum*supply
	lhs := new(big.Rat).Mul(total, hundred)
	rhs := new(big.Rat).Mul(rat(th.Quorum), big.NewRat(supply.Amount, 1))
	if lhs.Cmp(rhs) < 0 {
		return
	}
	if approval.Cmp(rat(th.Approval)) < 0 {
		return
	}
	o.Verdict = Passed
	return
}
