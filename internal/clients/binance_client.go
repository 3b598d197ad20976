package clients

import (
	"github.com/adshao/go-binance/v2"
)

// NewBinanceClient builds an authenticated Binance REST client.
func NewBinanceClient(apiKey, apiSecret string) *binance.Client {
	return binance.NewClient(apiKey, apiSecret)
}
