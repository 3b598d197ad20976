package producer

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/verdict/internal/domain"
	"github.com/vadiminshakov/verdict/internal/services/collector"
)

const (
	rsiUpperBand = 55
	rsiLowerBand = 45
)

// MomentumProducer votes on short-term RSI momentum. RSI above the upper
// band reads as continuation up, below the lower band as continuation
// down, and the neutral zone in between produces a skip.
type MomentumProducer struct {
	id       string
	klines   collector.KlineProvider
	interval string
	period   int
	lookback int
}

// NewMomentumProducer creates an RSI momentum producer.
func NewMomentumProducer(klines collector.KlineProvider, interval string, period, lookback int) (*MomentumProducer, error) {
	if klines == nil {
		return nil, errors.New("kline provider is required")
	}
	if period < 2 {
		period = 14
	}
	if lookback < period+1 {
		lookback = period * 4
	}
	return &MomentumProducer{
		id:       "rsi_momentum",
		klines:   klines,
		interval: interval,
		period:   period,
		lookback: lookback,
	}, nil
}

// ID returns the producer identifier used for weighting and audit.
func (p *MomentumProducer) ID() string {
	return p.id
}

// GetVote computes the current RSI and maps it to a directional vote.
func (p *MomentumProducer) GetVote(ctx context.Context, ectx EpochContext) (domain.Vote, error) {
	candles, err := p.klines.GetKlines(ctx, ectx.Instrument, p.interval, p.lookback)
	if err != nil {
		return domain.Vote{}, errors.Wrap(err, "failed to fetch candles for momentum vote")
	}
	if len(candles) < p.period+1 {
		return domain.Vote{}, errors.Errorf("not enough candles for RSI: need %d, got %d", p.period+1, len(candles))
	}

	closes := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	values, err := calculateRSI(closes, p.period)
	if err != nil {
		return domain.Vote{}, errors.Wrap(err, "failed to compute RSI")
	}
	if len(values) == 0 {
		return domain.Vote{}, errors.New("RSI produced no values")
	}

	rsi := values[len(values)-1]
	quality := dataQuality(len(candles), p.lookback)

	fifty := decimal.NewFromInt(50)
	switch {
	case rsi.GreaterThanOrEqual(decimal.NewFromInt(rsiUpperBand)):
		conf := clampUnit(rsi.Sub(fifty).Div(fifty))
		return domain.Vote{
			ProducerID: p.id,
			Direction:  domain.DirectionUp,
			Confidence: conf,
			Quality:    quality,
			Rationale:  fmt.Sprintf("RSI%d at %s above %d", p.period, rsi.Round(2).String(), rsiUpperBand),
		}, nil
	case rsi.LessThanOrEqual(decimal.NewFromInt(rsiLowerBand)):
		conf := clampUnit(fifty.Sub(rsi).Div(fifty))
		return domain.Vote{
			ProducerID: p.id,
			Direction:  domain.DirectionDown,
			Confidence: conf,
			Quality:    quality,
			Rationale:  fmt.Sprintf("RSI%d at %s below %d", p.period, rsi.Round(2).String(), rsiLowerBand),
		}, nil
	default:
		return domain.NewSkipVote(p.id, fmt.Sprintf("RSI%d at %s in neutral zone", p.period, rsi.Round(2).String())), nil
	}
}

// dataQuality scores how complete the fetched history is relative to the
// requested lookback.
func dataQuality(got, requested int) decimal.Decimal {
	if requested <= 0 || got >= requested {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(got)).Div(decimal.NewFromInt(int64(requested)))
}

func clampUnit(v decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if v.GreaterThan(one) {
		return one
	}
	if v.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return v
}
