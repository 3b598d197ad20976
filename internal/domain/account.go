package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrInvariantViolation signals that an account mutation would leave the cash
// balance above the recorded peak. The mutation must be aborted, never
// silently corrected: a violation means an upstream caller is buggy.
var ErrInvariantViolation = errors.New("account invariant violated: cash_balance > peak_balance")

// Account is the engine's single mutable capital state. It is owned
// exclusively by the account keeper; everything else receives copies.
// Peak balance grows only from realized cash gains, never from the
// unrealized value of an open position.
type Account struct {
	CashBalance       decimal.Decimal `json:"cash_balance"`
	PeakBalance       decimal.Decimal `json:"peak_balance"`
	DailyPnL          decimal.Decimal `json:"daily_pnl"`
	ConsecutiveLosses int             `json:"consecutive_losses"`
	ConsecutiveWins   int             `json:"consecutive_wins"`
	Mode              RiskMode        `json:"mode"`
}

// NewAccount creates an account with the given starting balance in Normal mode.
func NewAccount(startBalance decimal.Decimal) Account {
	return Account{
		CashBalance: startBalance,
		PeakBalance: startBalance,
		DailyPnL:    decimal.Zero,
		Mode:        ModeNormal,
	}
}

// Validate checks the cash-below-peak invariant.
func (a Account) Validate() error {
	if a.CashBalance.GreaterThan(a.PeakBalance) {
		return errors.Wrapf(ErrInvariantViolation, "cash=%s peak=%s", a.CashBalance, a.PeakBalance)
	}
	return nil
}

// DrawdownPercent returns the cash-only decline from the historical peak, in
// percent. Open positions are excluded by construction: only the cash balance
// participates.
func (a Account) DrawdownPercent() decimal.Decimal {
	if a.PeakBalance.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return a.PeakBalance.Sub(a.CashBalance).Div(a.PeakBalance).Mul(decimal.NewFromInt(100))
}

// Snapshot is a read-only view of the keeper's state handed to the guardian
// and sizer for one tick.
type Snapshot struct {
	Account       Account
	OpenPositions []Position
	Window        []Direction
}

// OpenPositionFor returns the open position for the given epoch key, if any.
func (s Snapshot) OpenPositionFor(instrument Instrument, epochKey string) *Position {
	for i := range s.OpenPositions {
		p := &s.OpenPositions[i]
		if p.Instrument == instrument && p.EpochKey == epochKey && p.Status == PositionOpen {
			return p
		}
	}
	return nil
}
