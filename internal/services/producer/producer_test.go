package producer

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/verdict/internal/domain"
)

type fakeKlines struct {
	candles []domain.MarketCandle
	err     error
}

func (f *fakeKlines) GetKlines(_ context.Context, _ domain.Instrument, _ string, _ int) ([]domain.MarketCandle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

func candlesFromCloses(closes []float64) []domain.MarketCandle {
	out := make([]domain.MarketCandle, len(closes))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		price := decimal.NewFromFloat(c)
		out[i] = domain.MarketCandle{
			OpenTime:  base.Add(time.Duration(i) * time.Minute),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    decimal.NewFromInt(1),
			CloseTime: base.Add(time.Duration(i+1) * time.Minute),
		}
	}
	return out
}

func risingCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func fallingCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 200 - float64(i)
	}
	return out
}

func testEpochContext() EpochContext {
	instrument := domain.Instrument{Base: "BTC", Quote: "USDT"}
	return EpochContext{
		Instrument:   instrument,
		Epoch:        domain.Epoch{Instrument: instrument, Start: time.Now(), End: time.Now().Add(time.Hour)},
		CurrentPrice: decimal.NewFromInt(100),
	}
}

func TestMomentumProducerVotesUpOnRisingMarket(t *testing.T) {
	klines := &fakeKlines{candles: candlesFromCloses(risingCloses(60))}
	p, err := NewMomentumProducer(klines, "1m", 14, 60)
	require.NoError(t, err)

	vote, err := p.GetVote(context.Background(), testEpochContext())
	require.NoError(t, err)

	assert.Equal(t, domain.DirectionUp, vote.Direction)
	assert.True(t, vote.Confidence.Equal(decimal.NewFromInt(1)),
		"monotonic gains should drive RSI to 100, got confidence %s", vote.Confidence.String())
	assert.Equal(t, "rsi_momentum", vote.ProducerID)
}

func TestMomentumProducerVotesDownOnFallingMarket(t *testing.T) {
	klines := &fakeKlines{candles: candlesFromCloses(fallingCloses(60))}
	p, err := NewMomentumProducer(klines, "1m", 14, 60)
	require.NoError(t, err)

	vote, err := p.GetVote(context.Background(), testEpochContext())
	require.NoError(t, err)

	assert.Equal(t, domain.DirectionDown, vote.Direction)
	assert.True(t, vote.Confidence.Equal(decimal.NewFromInt(1)))
}

func TestMomentumProducerSkipsNeutralMarket(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
		if i%2 == 1 {
			closes[i] = 101
		}
	}
	klines := &fakeKlines{candles: candlesFromCloses(closes)}
	p, err := NewMomentumProducer(klines, "1m", 14, 60)
	require.NoError(t, err)

	vote, err := p.GetVote(context.Background(), testEpochContext())
	require.NoError(t, err)

	assert.True(t, vote.IsSkip(), "alternating market should land in the neutral zone, got %s", vote.Direction)
}

func TestMomentumProducerFailsOnProviderError(t *testing.T) {
	klines := &fakeKlines{err: errors.New("upstream down")}
	p, err := NewMomentumProducer(klines, "1m", 14, 60)
	require.NoError(t, err)

	_, err = p.GetVote(context.Background(), testEpochContext())
	assert.Error(t, err)
}

func TestMomentumProducerFailsOnShortHistory(t *testing.T) {
	klines := &fakeKlines{candles: candlesFromCloses(risingCloses(5))}
	p, err := NewMomentumProducer(klines, "1m", 14, 60)
	require.NoError(t, err)

	_, err = p.GetVote(context.Background(), testEpochContext())
	assert.Error(t, err)
}

func TestTrendProducerFollowsTrend(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   domain.Direction
	}{
		{name: "uptrend", closes: risingCloses(90), want: domain.DirectionUp},
		{name: "downtrend", closes: fallingCloses(90), want: domain.DirectionDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			klines := &fakeKlines{candles: candlesFromCloses(tt.closes)}
			p, err := NewTrendProducer(klines, "1m", 5, 10, 90, decimal.Zero)
			require.NoError(t, err)

			vote, err := p.GetVote(context.Background(), testEpochContext())
			require.NoError(t, err)

			assert.Equal(t, tt.want, vote.Direction)
			assert.True(t, vote.Confidence.GreaterThan(decimal.Zero))
		})
	}
}

func TestTrendProducerSkipsFlatMarket(t *testing.T) {
	closes := make([]float64, 90)
	for i := range closes {
		closes[i] = 100
	}
	klines := &fakeKlines{candles: candlesFromCloses(closes)}
	p, err := NewTrendProducer(klines, "1m", 5, 10, 90, decimal.Zero)
	require.NoError(t, err)

	vote, err := p.GetVote(context.Background(), testEpochContext())
	require.NoError(t, err)

	assert.True(t, vote.IsSkip())
}

func TestBuildRejectsUnknownProducer(t *testing.T) {
	klines := &fakeKlines{}
	_, err := Build([]string{"oracle"}, klines, Settings{Interval: "1m"})
	assert.Error(t, err)
}

func TestBuildCreatesEnabledProducers(t *testing.T) {
	klines := &fakeKlines{}
	producers, err := Build([]string{NameMomentum, NameTrend}, klines, Settings{Interval: "1m"})
	require.NoError(t, err)
	require.Len(t, producers, 2)
	assert.Equal(t, NameMomentum, producers[0].ID())
	assert.Equal(t, NameTrend, producers[1].ID())
}
