package epoch

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/verdict/internal/domain"
)

type stubPrices struct {
	price decimal.Decimal
	err   error
	calls int
}

func (s *stubPrices) GetPrice(context.Context, domain.Instrument) (decimal.Decimal, error) {
	s.calls++
	if s.err != nil {
		return decimal.Decimal{}, s.err
	}
	return s.price, nil
}

func TestTrackerAlignsEpochToDuration(t *testing.T) {
	prices := &stubPrices{price: decimal.NewFromInt(50000)}
	tr, err := NewTracker(time.Hour, prices, zap.NewNop())
	require.NoError(t, err)

	instrument := domain.Instrument{Base: "BTC", Quote: "USDT"}
	now := time.Date(2026, 8, 1, 12, 37, 15, 0, time.UTC)

	ep, err := tr.Current(context.Background(), instrument, now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), ep.Start)
	assert.Equal(t, time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC), ep.End)
	assert.True(t, ep.ReferencePrice.Equal(decimal.NewFromInt(50000)))
}

func TestTrackerReusesCurrentEpoch(t *testing.T) {
	prices := &stubPrices{price: decimal.NewFromInt(50000)}
	tr, err := NewTracker(time.Hour, prices, zap.NewNop())
	require.NoError(t, err)

	instrument := domain.Instrument{Base: "BTC", Quote: "USDT"}
	now := time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC)

	first, err := tr.Current(context.Background(), instrument, now)
	require.NoError(t, err)

	prices.price = decimal.NewFromInt(60000)
	second, err := tr.Current(context.Background(), instrument, now.Add(10*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, first.Key(), second.Key())
	assert.True(t, second.ReferencePrice.Equal(decimal.NewFromInt(50000)),
		"reference price must stay fixed for the epoch lifetime")
	assert.Equal(t, 1, prices.calls)
}

func TestTrackerOpensNextEpoch(t *testing.T) {
	prices := &stubPrices{price: decimal.NewFromInt(50000)}
	tr, err := NewTracker(time.Hour, prices, zap.NewNop())
	require.NoError(t, err)

	instrument := domain.Instrument{Base: "BTC", Quote: "USDT"}
	now := time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC)

	first, err := tr.Current(context.Background(), instrument, now)
	require.NoError(t, err)

	prices.price = decimal.NewFromInt(51000)
	second, err := tr.Current(context.Background(), instrument, now.Add(time.Hour))
	require.NoError(t, err)

	assert.NotEqual(t, first.Key(), second.Key())
	assert.Equal(t, first.End, second.Start)
	assert.True(t, second.ReferencePrice.Equal(decimal.NewFromInt(51000)))
}

func TestTrackerPropagatesFeedError(t *testing.T) {
	prices := &stubPrices{err: errors.New("feed down")}
	tr, err := NewTracker(time.Hour, prices, zap.NewNop())
	require.NoError(t, err)

	_, err = tr.Current(context.Background(), domain.Instrument{Base: "BTC", Quote: "USDT"}, time.Now())
	assert.Error(t, err)
}

func TestTrackerRejectsNonPositiveDuration(t *testing.T) {
	_, err := NewTracker(0, &stubPrices{}, zap.NewNop())
	assert.Error(t, err)
}
