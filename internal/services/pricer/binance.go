package pricer

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// BinancePricer fetches spot prices from Binance.
type BinancePricer struct {
	client *binance.Client
}

// NewBinancePricer creates a Binance-backed pricer.
func NewBinancePricer(client *binance.Client) *BinancePricer {
	return &BinancePricer{client: client}
}

// GetPrice returns the current price for the instrument's underlying pair.
func (p *BinancePricer) GetPrice(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error) {
	prices, err := p.client.NewListPricesService().Symbol(instrument.Symbol()).Do(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if len(prices) == 0 {
		return decimal.Decimal{}, fmt.Errorf("binance API returned empty prices for %s", instrument.String())
	}

	return decimal.NewFromString(prices[0].Price)
}
