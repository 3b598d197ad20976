package guardian

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

var testInstrument = domain.Instrument{Base: "BTC", Quote: "USDT"}

type stubChecker struct {
	conflict bool
	err      error
	calls    int
}

func (s *stubChecker) HasOpenPosition(_ context.Context, _ domain.Instrument) (bool, error) {
	s.calls++
	return s.conflict, s.err
}

func testSignal() domain.TradeSignal {
	return domain.TradeSignal{
		Instrument: testInstrument,
		EpochKey:   "BTC_USDT:100",
		Direction:  domain.DirectionUp,
		Confidence: decimal.NewFromFloat(0.8),
	}
}

func testConfig() Config {
	return Config{
		MaxConcurrentPositions: 3,
		DirectionCeiling:       decimal.NewFromFloat(0.75),
		BiasFraction:           decimal.NewFromFloat(0.8),
		ConflictTimeout:        time.Second,
	}
}

func healthySnapshot() domain.Snapshot {
	return domain.Snapshot{
		Account: domain.Account{
			CashBalance: decimal.NewFromInt(1000),
			PeakBalance: decimal.NewFromInt(1000),
			Mode:        domain.ModeNormal,
		},
	}
}

func openPosition(t *testing.T, epochKey string, dir domain.Direction) domain.Position {
	t.Helper()
	p, err := domain.NewPosition(testInstrument, epochKey, dir,
		decimal.NewFromFloat(0.5), decimal.NewFromInt(10), time.Now())
	require.NoError(t, err)
	return p
}

func TestAdmit_HaltedShortCircuits(t *testing.T) {
	checker := &stubChecker{}
	g := New(testConfig(), checker, nil)

	snap := healthySnapshot()
	snap.Account.Mode = domain.ModeHalted

	admission, rejection := g.Admit(context.Background(), testSignal(), snap)
	assert.Nil(t, admission)
	require.NotNil(t, rejection)
	assert.Equal(t, domain.RejectHalted, rejection.Reason)
	assert.Equal(t, 0, checker.calls, "no further checks run once halted")
}

func TestAdmit_LiveConflictFailsClosed(t *testing.T) {
	tests := []struct {
		name    string
		checker *stubChecker
		reason  domain.RejectReason
	}{
		{"venue reports a position", &stubChecker{conflict: true}, domain.RejectLiveConflict},
		{"query error treated as unknown", &stubChecker{err: errors.New("timeout")}, domain.RejectConflictUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(testConfig(), tt.checker, nil)

			admission, rejection := g.Admit(context.Background(), testSignal(), healthySnapshot())
			assert.Nil(t, admission)
			require.NotNil(t, rejection)
			assert.Equal(t, tt.reason, rejection.Reason)
		})
	}
}

func TestAdmit_DuplicateRejectsRegardlessOfSignalStrength(t *testing.T) {
	g := New(testConfig(), &stubChecker{}, nil)

	snap := healthySnapshot()
	snap.OpenPositions = []domain.Position{openPosition(t, "BTC_USDT:100", domain.DirectionDown)}

	signal := testSignal()
	signal.Confidence = decimal.NewFromInt(1) // maximum strength changes nothing

	admission, rejection := g.Admit(context.Background(), signal, snap)
	assert.Nil(t, admission)
	require.NotNil(t, rejection)
	assert.Equal(t, domain.RejectDuplicatePosition, rejection.Reason)
}

func TestAdmit_ExposureLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentPositions = 2
	g := New(cfg, &stubChecker{}, nil)

	snap := healthySnapshot()
	snap.OpenPositions = []domain.Position{
		openPosition(t, "BTC_USDT:1", domain.DirectionUp),
		openPosition(t, "BTC_USDT:2", domain.DirectionDown),
	}

	admission, rejection := g.Admit(context.Background(), testSignal(), snap)
	assert.Nil(t, admission)
	require.NotNil(t, rejection)
	assert.Equal(t, domain.RejectExposureLimit, rejection.Reason)
}

func TestAdmit_DirectionalCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentPositions = 10
	cfg.DirectionCeiling = decimal.NewFromFloat(0.7)
	g := New(cfg, &stubChecker{}, nil)

	snap := healthySnapshot()
	snap.OpenPositions = []domain.Position{
		openPosition(t, "BTC_USDT:1", domain.DirectionUp),
		openPosition(t, "BTC_USDT:2", domain.DirectionUp),
	}

	// admitting a third Up would make 3/3 in one direction
	admission, rejection := g.Admit(context.Background(), testSignal(), snap)
	assert.Nil(t, admission)
	require.NotNil(t, rejection)
	assert.Equal(t, domain.RejectDirectionalCeiling, rejection.Reason)

	// the opposite direction passes
	down := testSignal()
	down.Direction = domain.DirectionDown
	down.EpochKey = "BTC_USDT:200"
	admission, rejection = g.Admit(context.Background(), down, snap)
	assert.Nil(t, rejection)
	assert.NotNil(t, admission)
}

func TestAdmit_BiasAdvisoryDoesNotVeto(t *testing.T) {
	g := New(testConfig(), &stubChecker{}, nil)

	snap := healthySnapshot()
	snap.Window = []domain.Direction{
		domain.DirectionUp, domain.DirectionUp, domain.DirectionUp,
		domain.DirectionUp, domain.DirectionDown,
	}

	admission, rejection := g.Admit(context.Background(), testSignal(), snap)
	require.Nil(t, rejection)
	require.NotNil(t, admission)
	assert.True(t, admission.BiasAdvisory, "4/5 same direction crosses the 0.8 fraction")
}

func TestAdmit_CarriesModeMultiplier(t *testing.T) {
	g := New(testConfig(), &stubChecker{}, nil)

	snap := healthySnapshot()
	snap.Account.Mode = domain.ModeConservative

	admission, rejection := g.Admit(context.Background(), testSignal(), snap)
	require.Nil(t, rejection)
	require.NotNil(t, admission)
	assert.True(t, admission.SizeMultiplier.Equal(decimal.NewFromFloat(0.8)))
}
