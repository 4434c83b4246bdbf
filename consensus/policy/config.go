package policy

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/guilledk/telos-works/worksmachine"
)

// SetDefaults installs the genesis policy under the "policy." prefix.
func SetDefaults(conf *viper.Viper) {
	d := Default()
	conf.SetDefault("policy.app_name", d.AppName)
	conf.SetDefault("policy.app_version", d.AppVersion)
	conf.SetDefault("policy.admin", d.Admin)
	conf.SetDefault("policy.quorum_threshold", d.QuorumThreshold)
	conf.SetDefault("policy.approval_threshold", d.ApprovalThreshold)
	conf.SetDefault("policy.quorum_refund_threshold", d.QuorumRefundThreshold)
	conf.SetDefault("policy.approval_refund_threshold", d.ApprovalRefundThreshold)
	conf.SetDefault("policy.min_fee", d.MinFee.String())
	conf.SetDefault("policy.fee_percent", d.FeePercent)
	conf.SetDefault("policy.min_milestones", d.MinMilestones)
	conf.SetDefault("policy.max_milestones", d.MaxMilestones)
	conf.SetDefault("policy.milestone_length", d.MilestoneLength)
	conf.SetDefault("policy.min_requested", d.MinRequested.String())
	conf.SetDefault("policy.max_requested", d.MaxRequested.String())
	conf.SetDefault("policy.fee_sink", d.FeeSink)
	conf.SetDefault("policy.halt_on_failed_milestone", d.HaltOnFailedMilestone)
	conf.SetDefault("policy.symbol", d.Symbol)
	conf.SetDefault("policy.vote_symbol", d.VoteSymbol)
}

// FromConfig reads the genesis policy. Values are converted with cast so that yaml files may
// carry numbers as strings.
func FromConfig(conf *viper.Viper) (p Policy, err error) {
	get := func(key string) interface{} {
		return conf.Get("policy." + key)
	}
	errs := []error{}
	str := func(key string) string {
		s, e := cast.ToStringE(get(key))
		if e != nil {
			errs = append(errs, fmt.Errorf("policy.%s: %w", key, e))
		}
		return s
	}
	num := func(key string) float64 {
		f, e := cast.ToFloat64E(get(key))
		if e != nil {
			errs = append(errs, fmt.Errorf("policy.%s: %w", key, e))
		}
		return f
	}
	integer := func(key string) int64 {
		i, e := cast.ToInt64E(get(key))
		if e != nil {
			errs = append(errs, fmt.Errorf("policy.%s: %w", key, e))
		}
		return i
	}
	asset := func(key string) worksmachine.Asset {
		a, e := worksmachine.ParseAsset(str(key))
		if e != nil {
			errs = append(errs, fmt.Errorf("policy.%s: %w", key, e))
		}
		return a
	}
	halt, e := cast.ToBoolE(get("halt_on_failed_milestone"))
	if e != nil {
		errs = append(errs, fmt.Errorf("policy.halt_on_failed_milestone: %w", e))
	}
	p = Policy{
		AppName:                 str("app_name"),
		AppVersion:              str("app_version"),
		Admin:                   str("admin"),
		QuorumThreshold:         num("quorum_threshold"),
		ApprovalThreshold:       num("approval_threshold"),
		QuorumRefundThreshold:   num("quorum_refund_threshold"),
		ApprovalRefundThreshold: num("approval_refund_threshold"),
		MinFee:                  asset("min_fee"),
		FeePercent:              num("fee_percent"),
		MinMilestones:           integer("min_milestones"),
		MaxMilestones:           integer("max_milestones"),
		MilestoneLength:         integer("milestone_length"),
		MinRequested:            asset("min_requested"),
		MaxRequested:            asset("max_requested"),
		FeeSink:                 str("fee_sink"),
		HaltOnFailedMilestone:   halt,
		Symbol:                  str("symbol"),
		VoteSymbol:              str("vote_symbol"),
	}
	if len(errs) > 0 {
		return Policy{}, fmt.Errorf("%w: %v", worksmachine.ErrValidation, errs[0])
	}
	return p, p.Validate()
}
