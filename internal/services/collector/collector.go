// Package collector provides market data collection for vote producers.
package collector

import (
	"context"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// KlineProvider fetches historical candles for an instrument's underlying.
type KlineProvider interface {
	GetKlines(ctx context.Context, instrument domain.Instrument, interval string, limit int) ([]domain.MarketCandle, error)
}
