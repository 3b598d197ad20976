package producer

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/verdict/internal/services/collector"
)

// Known producer names accepted in configuration.
const (
	NameMomentum = "rsi_momentum"
	NameTrend    = "ema_trend"
)

// Settings tune the built-in producers.
type Settings struct {
	Interval    string
	RSIPeriod   int
	EMAFast     int
	EMASlow     int
	Lookback    int
	MinSpreadPc decimal.Decimal
}

// Build constructs the producers named in enabled, wiring each one to
// the given kline provider. Unknown names are rejected so that a typo
// in configuration fails loudly at startup.
func Build(enabled []string, klines collector.KlineProvider, settings Settings) ([]Producer, error) {
	if len(enabled) == 0 {
		return nil, errors.New("at least one producer must be enabled")
	}

	producers := make([]Producer, 0, len(enabled))
	for _, name := range enabled {
		switch name {
		case NameMomentum:
			p, err := NewMomentumProducer(klines, settings.Interval, settings.RSIPeriod, settings.Lookback)
			if err != nil {
				return nil, errors.Wrap(err, "failed to build momentum producer")
			}
			producers = append(producers, p)
		case NameTrend:
			p, err := NewTrendProducer(klines, settings.Interval, settings.EMAFast, settings.EMASlow, settings.Lookback, settings.MinSpreadPc)
			if err != nil {
				return nil, errors.Wrap(err, "failed to build trend producer")
			}
			producers = append(producers, p)
		default:
			return nil, errors.Errorf("unknown producer: %s", name)
		}
	}

	return producers, nil
}
