package pricer

import (
	"context"
	"fmt"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// BybitPricer fetches spot prices from Bybit.
type BybitPricer struct {
	client *bybit.Client
}

// NewBybitPricer creates a Bybit-backed pricer.
func NewBybitPricer(client *bybit.Client) *BybitPricer {
	return &BybitPricer{client: client}
}

// GetPrice returns the current price for the instrument's underlying pair.
func (p *BybitPricer) GetPrice(_ context.Context, instrument domain.Instrument) (decimal.Decimal, error) {
	symbol := bybit.SymbolV5(instrument.Symbol())

	result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: "spot",
		Symbol:   &symbol,
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	if len(result.Result.Spot.List) == 0 {
		return decimal.Decimal{}, fmt.Errorf("bybit API returned empty prices for %s", instrument.String())
	}

	return decimal.NewFromString(result.Result.Spot.List[0].LastPrice)
}
