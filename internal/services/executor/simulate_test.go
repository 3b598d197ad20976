package executor

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/verdict/internal/domain"
)

func testIntent(id string, direction domain.Direction) domain.TradeIntent {
	return domain.TradeIntent{
		ID:         id,
		Instrument: domain.Instrument{Base: "BTC", Quote: "USDT"},
		EpochKey:   "BTC_USDT:100",
		Direction:  direction,
		Size:       decimal.NewFromInt(50),
		CreatedAt:  time.Now(),
	}
}

func TestSimulateExecutorPlaceAndSettle(t *testing.T) {
	e, err := NewSimulateExecutor(decimal.Zero, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	instrument := domain.Instrument{Base: "BTC", Quote: "USDT"}

	open, err := e.HasOpenPosition(ctx, instrument)
	require.NoError(t, err)
	assert.False(t, open)

	require.NoError(t, e.PlaceIntent(ctx, testIntent("a", domain.DirectionUp)))
	assert.Equal(t, 1, e.PlacedCount())

	open, err = e.HasOpenPosition(ctx, instrument)
	require.NoError(t, err)
	assert.True(t, open)

	require.NoError(t, e.Settle(ctx, instrument))
	open, err = e.HasOpenPosition(ctx, instrument)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestSimulateExecutorRejectsSecondPosition(t *testing.T) {
	e, err := NewSimulateExecutor(decimal.Zero, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.PlaceIntent(ctx, testIntent("a", domain.DirectionUp)))
	assert.Error(t, e.PlaceIntent(ctx, testIntent("b", domain.DirectionDown)))
}

func TestSimulateExecutorRejectsNonPositiveSize(t *testing.T) {
	e, err := NewSimulateExecutor(decimal.Zero, zap.NewNop())
	require.NoError(t, err)

	intent := testIntent("a", domain.DirectionUp)
	intent.Size = decimal.Zero
	assert.Error(t, e.PlaceIntent(context.Background(), intent))
}

func TestSimulateExecutorQuotes(t *testing.T) {
	e, err := NewSimulateExecutor(decimal.Zero, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	instrument := domain.Instrument{Base: "BTC", Quote: "USDT"}

	quote, err := e.EntryPrice(ctx, instrument, domain.DirectionUp)
	require.NoError(t, err)
	assert.True(t, quote.Equal(decimal.NewFromFloat(0.5)), "default quote is 0.5, got %s", quote)

	_, err = e.EntryPrice(ctx, instrument, domain.DirectionSkip)
	assert.Error(t, err)

	// holding a same-direction position worsens the next quote
	require.NoError(t, e.PlaceIntent(ctx, testIntent("a", domain.DirectionUp)))
	quote, err = e.EntryPrice(ctx, instrument, domain.DirectionUp)
	require.NoError(t, err)
	assert.True(t, quote.Equal(decimal.NewFromFloat(0.55)), "got %s", quote)
}

func TestSimulateExecutorRejectsBadBaseQuote(t *testing.T) {
	_, err := NewSimulateExecutor(decimal.NewFromInt(1), zap.NewNop())
	assert.Error(t, err)

	_, err = NewSimulateExecutor(decimal.NewFromFloat(-0.1), zap.NewNop())
	assert.Error(t, err)
}

func TestSimulateExecutorSettleUnknown(t *testing.T) {
	e, err := NewSimulateExecutor(decimal.Zero, zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, e.Settle(context.Background(), domain.Instrument{Base: "BTC", Quote: "USDT"}))
}
