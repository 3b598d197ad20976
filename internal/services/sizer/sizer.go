// Package sizer computes position sizes for admitted trade signals.
package sizer

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// ErrNoEdge is returned when the Kelly fraction is non-positive: no edge
// means no trade, never a zero-size order that proceeds anyway.
var ErrNoEdge = errors.New("no positive edge at current entry price")

// Policy selects the sizing algorithm.
type Policy string

const (
	PolicyTiered Policy = "tiered"
	PolicyKelly  Policy = "kelly"
)

// Tier maps a minimum balance to the balance fraction staked at that level.
type Tier struct {
	MinBalance decimal.Decimal
	Percent    decimal.Decimal
}

// Config holds sizing parameters for both policies.
type Config struct {
	Policy Policy

	// tiered policy
	Tiers  []Tier
	MinUSD decimal.Decimal
	MaxUSD decimal.Decimal

	// fractional Kelly policy
	KellyMultiplier decimal.Decimal
	MinPercent      decimal.Decimal
	MaxPercent      decimal.Decimal
}

// Sizer turns an admission into a stake amount.
type Sizer struct {
	cfg Config
}

// New creates a sizer. Tiers are kept sorted by balance descending so lookup
// takes the highest tier at or below the balance.
func New(cfg Config) *Sizer {
	tiers := make([]Tier, len(cfg.Tiers))
	copy(tiers, cfg.Tiers)
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].MinBalance.GreaterThan(tiers[j].MinBalance)
	})
	cfg.Tiers = tiers

	if cfg.KellyMultiplier.LessThanOrEqual(decimal.Zero) {
		cfg.KellyMultiplier = decimal.NewFromFloat(0.25)
	}
	return &Sizer{cfg: cfg}
}

// Size computes the stake for the admitted signal. entryPrice is the
// binary-market price in (0, 1) being bought; modeMultiplier comes from the
// guardian's admission.
func (s *Sizer) Size(admission domain.TradeSignal, account domain.Account, entryPrice, modeMultiplier decimal.Decimal) (decimal.Decimal, error) {
	var size decimal.Decimal
	var err error

	switch s.cfg.Policy {
	case PolicyKelly:
		size, err = s.kellySize(admission.Confidence, account.CashBalance, entryPrice)
	default:
		size, err = s.tieredSize(account.CashBalance)
	}
	if err != nil {
		return decimal.Zero, err
	}

	if modeMultiplier.IsPositive() {
		size = size.Mul(modeMultiplier)
	}

	if size.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrNoEdge
	}
	return size, nil
}

// tieredSize stakes a balance fraction from a monotonically non-increasing
// step function of balance, clamped to [MinUSD, MaxUSD].
func (s *Sizer) tieredSize(balance decimal.Decimal) (decimal.Decimal, error) {
	if balance.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.New("cash balance is not positive")
	}

	pct := decimal.Zero
	for _, tier := range s.cfg.Tiers {
		if balance.GreaterThanOrEqual(tier.MinBalance) {
			pct = tier.Percent
			break
		}
	}
	if pct.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.New("no sizing tier matches balance")
	}

	size := balance.Mul(pct)
	if s.cfg.MinUSD.IsPositive() && size.LessThan(s.cfg.MinUSD) {
		size = s.cfg.MinUSD
	}
	if s.cfg.MaxUSD.IsPositive() && size.GreaterThan(s.cfg.MaxUSD) {
		size = s.cfg.MaxUSD
	}
	return size, nil
}

// kellySize applies the fractional Kelly criterion for a binary market:
//
//	b  = (1 - entry) / entry
//	f  = (p·b - q) / b
//	f' = k · f
//
// The stake fraction is clamped to [MinPercent, MaxPercent] of cash.
func (s *Sizer) kellySize(p, balance, entryPrice decimal.Decimal) (decimal.Decimal, error) {
	one := decimal.NewFromInt(1)
	if entryPrice.LessThanOrEqual(decimal.Zero) || entryPrice.GreaterThanOrEqual(one) {
		return decimal.Zero, errors.Errorf("entry price %s outside (0,1)", entryPrice)
	}

	b := one.Sub(entryPrice).Div(entryPrice)
	q := one.Sub(p)
	f := p.Mul(b).Sub(q).Div(b)
	scaled := s.cfg.KellyMultiplier.Mul(f)

	if scaled.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrNoEdge
	}

	if s.cfg.MinPercent.IsPositive() && scaled.LessThan(s.cfg.MinPercent) {
		scaled = s.cfg.MinPercent
	}
	if s.cfg.MaxPercent.IsPositive() && scaled.GreaterThan(s.cfg.MaxPercent) {
		scaled = s.cfg.MaxPercent
	}

	return balance.Mul(scaled), nil
}
