package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketCandle is a single OHLCV kline from the market data feed.
type MarketCandle struct {
	OpenTime  time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime time.Time
}
