// Package executor places admitted trade intents on a venue.
package executor

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// Executor is the venue-side surface the decision pipeline needs: it
// quotes an entry price, reports live position conflicts, and accepts
// admitted intents for execution.
type Executor interface {
	// EntryPrice returns the current cost per contract for the given
	// direction, as a fraction of the unit payout in (0, 1).
	EntryPrice(ctx context.Context, instrument domain.Instrument, direction domain.Direction) (decimal.Decimal, error)

	// HasOpenPosition reports whether the venue holds an open position
	// for the instrument.
	HasOpenPosition(ctx context.Context, instrument domain.Instrument) (bool, error)

	// PlaceIntent submits the intent for execution.
	PlaceIntent(ctx context.Context, intent domain.TradeIntent) error
}
