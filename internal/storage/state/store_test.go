package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/verdict/internal/domain"
)

func TestStore_LoadMissingReturnsNotFound(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	_, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	instrument := domain.Instrument{Base: "BTC", Quote: "USDT"}
	pos, err := domain.NewPosition(instrument, "BTC_USDT:10", domain.DirectionUp,
		decimal.NewFromFloat(0.45), decimal.NewFromInt(25), time.Now().UTC())
	require.NoError(t, err)

	saved := State{
		Account: domain.Account{
			CashBalance:       decimal.NewFromInt(975),
			PeakBalance:       decimal.NewFromInt(1000),
			DailyPnL:          decimal.NewFromInt(-25),
			ConsecutiveLosses: 1,
			Mode:              domain.ModeNormal,
		},
		OpenPositions: []domain.Position{pos},
		Window:        EncodeWindow([]domain.Direction{domain.DirectionUp, domain.DirectionDown}),
	}
	require.NoError(t, store.Save(saved))

	loaded, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)

	assert.True(t, loaded.Account.CashBalance.Equal(saved.Account.CashBalance))
	assert.True(t, loaded.Account.PeakBalance.Equal(saved.Account.PeakBalance))
	assert.Equal(t, domain.ModeNormal, loaded.Account.Mode)
	require.Len(t, loaded.OpenPositions, 1)
	assert.Equal(t, "BTC_USDT:10", loaded.OpenPositions[0].EpochKey)
	assert.Equal(t, []domain.Direction{domain.DirectionUp, domain.DirectionDown},
		DecodeWindow(loaded.Window))
}

func TestStore_SaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "state.json"))
	require.NoError(t, err)

	first := State{Account: domain.NewAccount(decimal.NewFromInt(1000))}
	require.NoError(t, store.Save(first))

	second := State{Account: domain.NewAccount(decimal.NewFromInt(2000))}
	require.NoError(t, store.Save(second))

	loaded, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, loaded.Account.CashBalance.Equal(decimal.NewFromInt(2000)))

	// no temp files left behind
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
