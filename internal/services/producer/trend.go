package producer

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/verdict/internal/domain"
	"github.com/vadiminshakov/verdict/internal/services/collector"
)

// TrendProducer votes on the EMA fast/slow spread. A fast average above
// the slow one reads as an uptrend; the confidence scales with the
// relative spread between the two.
type TrendProducer struct {
	id          string
	klines      collector.KlineProvider
	interval    string
	fastPeriod  int
	slowPeriod  int
	lookback    int
	minSpreadPc decimal.Decimal
}

// NewTrendProducer creates an EMA crossover trend producer. minSpreadPc
// is the minimum relative spread in percent below which the producer
// skips; zero value defaults to 0.05%.
func NewTrendProducer(klines collector.KlineProvider, interval string, fastPeriod, slowPeriod, lookback int, minSpreadPc decimal.Decimal) (*TrendProducer, error) {
	if klines == nil {
		return nil, errors.New("kline provider is required")
	}
	if fastPeriod < 2 {
		fastPeriod = 20
	}
	if slowPeriod <= fastPeriod {
		slowPeriod = fastPeriod * 2
	}
	if lookback < slowPeriod {
		lookback = slowPeriod * 3
	}
	if minSpreadPc.LessThanOrEqual(decimal.Zero) {
		minSpreadPc = decimal.NewFromFloat(0.05)
	}
	return &TrendProducer{
		id:          "ema_trend",
		klines:      klines,
		interval:    interval,
		fastPeriod:  fastPeriod,
		slowPeriod:  slowPeriod,
		lookback:    lookback,
		minSpreadPc: minSpreadPc,
	}, nil
}

// ID returns the producer identifier used for weighting and audit.
func (p *TrendProducer) ID() string {
	return p.id
}

// GetVote compares the fast and slow EMA and votes with the trend.
func (p *TrendProducer) GetVote(ctx context.Context, ectx EpochContext) (domain.Vote, error) {
	candles, err := p.klines.GetKlines(ctx, ectx.Instrument, p.interval, p.lookback)
	if err != nil {
		return domain.Vote{}, errors.Wrap(err, "failed to fetch candles for trend vote")
	}
	if len(candles) < p.slowPeriod {
		return domain.Vote{}, errors.Errorf("not enough candles for EMA%d: need %d, got %d", p.slowPeriod, p.slowPeriod, len(candles))
	}

	closes := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	fast, err := calculateEMA(closes, p.fastPeriod)
	if err != nil {
		return domain.Vote{}, errors.Wrapf(err, "failed to compute EMA%d", p.fastPeriod)
	}
	slow, err := calculateEMA(closes, p.slowPeriod)
	if err != nil {
		return domain.Vote{}, errors.Wrapf(err, "failed to compute EMA%d", p.slowPeriod)
	}
	if len(fast) == 0 || len(slow) == 0 {
		return domain.Vote{}, errors.New("EMA produced no values")
	}

	fastLast := fast[len(fast)-1]
	slowLast := slow[len(slow)-1]
	if slowLast.IsZero() {
		return domain.Vote{}, errors.New("slow EMA is zero")
	}

	hundred := decimal.NewFromInt(100)
	spreadPc := fastLast.Sub(slowLast).Div(slowLast).Mul(hundred)
	quality := dataQuality(len(candles), p.lookback)

	if spreadPc.Abs().LessThan(p.minSpreadPc) {
		return domain.NewSkipVote(p.id, fmt.Sprintf("EMA%d/EMA%d spread %s%% below threshold", p.fastPeriod, p.slowPeriod, spreadPc.Round(4).String())), nil
	}

	// a 1% spread between the averages is already a strong trend for
	// short epochs, map it to full confidence
	conf := clampUnit(spreadPc.Abs())

	direction := domain.DirectionUp
	if spreadPc.IsNegative() {
		direction = domain.DirectionDown
	}

	return domain.Vote{
		ProducerID: p.id,
		Direction:  direction,
		Confidence: conf,
		Quality:    quality,
		Rationale:  fmt.Sprintf("EMA%d/EMA%d spread %s%%", p.fastPeriod, p.slowPeriod, spreadPc.Round(4).String()),
	}, nil
}
