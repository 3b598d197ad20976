package domain

import "github.com/shopspring/decimal"

// RiskMode is the account's risk posture. Transitions are a pure function of
// current cash-only drawdown, so two accounts with identical balances are
// always in the same mode regardless of how they got there.
type RiskMode string

const (
	ModeNormal       RiskMode = "normal"
	ModeConservative RiskMode = "conservative"
	ModeDefensive    RiskMode = "defensive"
	ModeRecovery     RiskMode = "recovery"
	ModeHalted       RiskMode = "halted"
)

// Drawdown thresholds in percent of peak balance.
var (
	conservativeThreshold = decimal.NewFromInt(8)
	defensiveThreshold    = decimal.NewFromInt(15)
	recoveryThreshold     = decimal.NewFromInt(25)
	// HaltThreshold is the drawdown percent at which trading halts. Exported
	// because resume validation re-checks it from outside the state machine.
	HaltThreshold = decimal.NewFromInt(30)
)

// ModeForDrawdown maps a drawdown percent to the corresponding risk mode.
func ModeForDrawdown(drawdownPercent decimal.Decimal) RiskMode {
	switch {
	case drawdownPercent.GreaterThanOrEqual(HaltThreshold):
		return ModeHalted
	case drawdownPercent.GreaterThanOrEqual(recoveryThreshold):
		return ModeRecovery
	case drawdownPercent.GreaterThanOrEqual(defensiveThreshold):
		return ModeDefensive
	case drawdownPercent.GreaterThanOrEqual(conservativeThreshold):
		return ModeConservative
	default:
		return ModeNormal
	}
}

// SizeMultiplier scales the sizer's output for the given mode.
func (m RiskMode) SizeMultiplier() decimal.Decimal {
	switch m {
	case ModeConservative:
		return decimal.NewFromFloat(0.8)
	case ModeDefensive:
		return decimal.NewFromFloat(0.5)
	case ModeRecovery:
		return decimal.NewFromFloat(0.25)
	case ModeHalted:
		return decimal.Zero
	default:
		return decimal.NewFromInt(1)
	}
}
