// Package pricer provides current market prices per instrument.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// Pricer provides the current price of an instrument's underlying.
type Pricer interface {
	GetPrice(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error)
}
