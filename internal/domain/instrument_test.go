package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstrument(t *testing.T) {
	tests := []struct {
		input   string
		want    Instrument
		wantErr bool
	}{
		{input: "BTC_USDT", want: Instrument{Base: "BTC", Quote: "USDT"}},
		{input: "ETH_USDT", want: Instrument{Base: "ETH", Quote: "USDT"}},
		{input: "BTCUSDT", wantErr: true},
		{input: "BTC_USDT_X", wantErr: true},
		{input: "_USDT", wantErr: true},
		{input: "BTC_", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseInstrument(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInstrumentForms(t *testing.T) {
	i := Instrument{Base: "BTC", Quote: "USDT"}
	assert.Equal(t, "BTC_USDT", i.String())
	assert.Equal(t, "BTCUSDT", i.Symbol())
}

func TestEpochKeyAndBounds(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ep := Epoch{
		Instrument:     Instrument{Base: "BTC", Quote: "USDT"},
		Start:          start,
		End:            start.Add(time.Hour),
		ReferencePrice: decimal.NewFromInt(50000),
	}

	assert.Equal(t, "BTC_USDT:1785585600", ep.Key())

	assert.True(t, ep.Contains(start))
	assert.True(t, ep.Contains(start.Add(59*time.Minute)))
	assert.False(t, ep.Contains(start.Add(time.Hour)))
	assert.False(t, ep.Contains(start.Add(-time.Second)))

	assert.False(t, ep.Ended(start.Add(59*time.Minute)))
	assert.True(t, ep.Ended(start.Add(time.Hour)))
}

func TestDirectionSignAndParse(t *testing.T) {
	assert.True(t, DirectionUp.Sign().Equal(decimal.NewFromInt(1)))
	assert.True(t, DirectionDown.Sign().Equal(decimal.NewFromInt(-1)))
	assert.True(t, DirectionSkip.Sign().IsZero())

	for _, d := range []Direction{DirectionUp, DirectionDown, DirectionSkip} {
		assert.Equal(t, d, ParseDirection(d.String()))
	}
	assert.Equal(t, DirectionSkip, ParseDirection("sideways"))
}

func TestSkipVote(t *testing.T) {
	v := NewSkipVote("trend", "flat market")
	assert.True(t, v.IsSkip())
	assert.True(t, v.Confidence.IsZero())
	assert.Equal(t, "trend", v.ProducerID)
	assert.Equal(t, "flat market", v.Rationale)
}
