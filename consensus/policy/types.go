package policy

import (
	"encoding/hex"
	"fmt"

	"github.com/guilledk/telos-works/consensus/tally"
	"github.com/guilledk/telos-works/worksmachine"
)

// Policy is the singleton configuration every handler works against. Handlers receive a
// copy taken before the command runs and never read the store directly.
type Policy struct {
	AppName                 string               `json:"app_name"`
	AppVersion              string               `json:"app_version"`
	Admin                   worksmachine.Account `json:"admin"`
	QuorumThreshold         float64              `json:"quorum_threshold"`
	ApprovalThreshold       float64              `json:"approval_threshold"`
	QuorumRefundThreshold   float64              `json:"quorum_refund_threshold"`
	ApprovalRefundThreshold float64              `json:"approval_refund_threshold"`
	MinFee                  worksmachine.Asset   `json:"min_fee"`
	FeePercent              float64              `json:"fee_percent"`
	MinMilestones           int64                `json:"min_milestones"`
	MaxMilestones           int64                `json:"max_milestones"`
	MilestoneLength         int64                `json:"milestone_length"`
	MinRequested            worksmachine.Asset   `json:"min_requested"`
	MaxRequested            worksmachine.Asset   `json:"max_requested"`
	FeeSink                 worksmachine.Account `json:"fee_sink"`
	HaltOnFailedMilestone   bool                 `json:"halt_on_failed_milestone"`
	Symbol                  string               `json:"symbol"`
	VoteSymbol              string               `json:"vote_symbol"`
}

//Kind641300 STATUS: DRAFT
//Sets the application version, admin only.
type Kind641300 struct {
	AppVersion string `json:"app_version"`
}

//Kind641302 STATUS: DRAFT
//Hands the admin role to another account, admin only.
type Kind641302 struct {
	Admin worksmachine.Account `json:"admin"`
}

func Default() Policy {
	return Policy{
		AppName:                 "Telos Works",
		AppVersion:              "v2.0.0",
		Admin:                   "telos.works",
		QuorumThreshold:         5,
		ApprovalThreshold:       50,
		QuorumRefundThreshold:   3,
		ApprovalRefundThreshold: 35,
		MinFee:                  worksmachine.MustParseAsset("30.0000 TLOS"),
		FeePercent:              5,
		MinMilestones:           1,
		MaxMilestones:           12,
		MilestoneLength:         300,
		MinRequested:            worksmachine.MustParseAsset("1000.0000 TLOS"),
		MaxRequested:            worksmachine.MustParseAsset("500000.0000 TLOS"),
		FeeSink:                 "telos.works",
		HaltOnFailedMilestone:   true,
		Symbol:                  "TLOS",
		VoteSymbol:              "VOTE",
	}
}

// IsKey reports whether a is a hex encoded public key, the only kind of account that can sign.
func IsKey(a worksmachine.Account) bool {
	if len(a) != 64 {
		return false
	}
	_, err := hex.DecodeString(a)
	return err == nil
}

// AdminOr hands the admin role to operator when the configured admin cannot sign.
func (p Policy) AdminOr(operator worksmachine.Account) Policy {
	if !IsKey(p.Admin) {
		p.Admin = operator
	}
	return p
}

func (p Policy) Normal() tally.Thresholds {
	return tally.Thresholds{Quorum: p.QuorumThreshold, Approval: p.ApprovalThreshold}
}

func (p Policy) Refund() tally.Thresholds {
	return tally.Thresholds{Quorum: p.QuorumRefundThreshold, Approval: p.ApprovalRefundThreshold}
}

// Fee returns max(min_fee, total*fee_percent/100) capped at total.
func (p Policy) Fee(total worksmachine.Asset) worksmachine.Asset {
	fee := total.Percent(p.FeePercent)
	if fee.Cmp(p.MinFee) < 0 {
		fee = worksmachine.NewAsset(p.MinFee.Amount, total.Symbol)
	}
	return fee.Min(total)
}

// Validate checks the policy is internally consistent.
func (p Policy) Validate() error {
	for _, th := range []float64{p.QuorumThreshold, p.ApprovalThreshold, p.QuorumRefundThreshold, p.ApprovalRefundThreshold, p.FeePercent} {
		if th < 0 || th > 100 {
			return fmt.Errorf("%w: percentage %v out of [0, 100]", worksmachine.ErrValidation, th)
		}
	}
	if p.MinMilestones < 1 || p.MaxMilestones < p.MinMilestones {
		return fmt.Errorf("%w: milestone bounds %d..%d", worksmachine.ErrValidation, p.MinMilestones, p.MaxMilestones)
	}
	if p.MilestoneLength < 0 {
		return fmt.Errorf("%w: negative milestone length", worksmachine.ErrValidation)
	}
	for _, a := range []worksmachine.Asset{p.MinFee, p.MinRequested, p.MaxRequested} {
		if a.Symbol != p.Symbol {
			return fmt.Errorf("%w: %s is not denominated in %s", worksmachine.ErrValidation, a, p.Symbol)
		}
		if a.IsNegative() {
			return fmt.Errorf("%w: negative policy amount %s", worksmachine.ErrValidation, a)
		}
	}
	if p.MaxRequested.Cmp(p.MinRequested) < 0 {
		return fmt.Errorf("%w: max_requested below min_requested", worksmachine.ErrValidation)
	}
	if len(p.Symbol) == 0 || len(p.VoteSymbol) == 0 {
		return fmt.Errorf("%w: empty symbol", worksmachine.ErrValidation)
	}
	return nil
}
