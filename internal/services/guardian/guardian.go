// Package guardian enforces exposure, correlation and drawdown limits on
// admitted trade signals.
package guardian

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// ConflictChecker queries the execution venue for an existing position on the
// instrument, regardless of direction. This is the only external call allowed
// inside the admit decision and it is read-only.
type ConflictChecker interface {
	HasOpenPosition(ctx context.Context, instrument domain.Instrument) (bool, error)
}

// Admission is a successful admit. The size hint is resolved by the sizer.
type Admission struct {
	Signal domain.TradeSignal
	// SizeMultiplier carries the mode-derived scaling for the sizer.
	SizeMultiplier decimal.Decimal
	// BiasAdvisory is set when the direction window shows a same-direction
	// run past the configured fraction. Advisory only: surfaced to the audit
	// trail, never a veto.
	BiasAdvisory bool
}

// Config holds the guardian's limits.
type Config struct {
	MaxConcurrentPositions int
	// DirectionCeiling is the maximum fraction of open positions allowed to
	// share one direction, in (0, 1].
	DirectionCeiling decimal.Decimal
	// BiasFraction is the same-direction share of the decision window that
	// triggers the advisory warning.
	BiasFraction decimal.Decimal
	// ConflictTimeout bounds the venue conflict query.
	ConflictTimeout time.Duration
}

// Guardian admits or rejects candidate trades against the account snapshot.
type Guardian struct {
	cfg     Config
	checker ConflictChecker
	l       *zap.Logger
}

// New creates a guardian.
func New(cfg Config, checker ConflictChecker, l *zap.Logger) *Guardian {
	if cfg.ConflictTimeout <= 0 {
		cfg.ConflictTimeout = 3 * time.Second
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Guardian{cfg: cfg, checker: checker, l: l}
}

// Admit runs the sequenced risk checks, short-circuiting on the first
// failure. Checks are ordered by blast radius, most catastrophic first.
// Exactly one of the return values is non-nil.
func (g *Guardian) Admit(ctx context.Context, signal domain.TradeSignal, snap domain.Snapshot) (*Admission, *domain.Rejection) {
	// 1. halted account: nothing else runs
	if snap.Account.Mode == domain.ModeHalted {
		return nil, domain.NewRejection(domain.StageGuardian, domain.RejectHalted, "account is halted")
	}

	// 2. venue ground truth beats local bookkeeping; fail closed on any
	// query error since duplicate or opposing positions destroy edge
	if rejection := g.checkLiveConflict(ctx, signal.Instrument); rejection != nil {
		return nil, rejection
	}

	// 3. local duplicate for the same (instrument, epoch)
	if pos := snap.OpenPositionFor(signal.Instrument, signal.EpochKey); pos != nil {
		return nil, domain.NewRejection(domain.StageGuardian, domain.RejectDuplicatePosition,
			fmt.Sprintf("open position exists for %s", signal.EpochKey))
	}

	// 4. exposure and correlation limits
	if rejection := g.checkExposure(signal, snap.OpenPositions); rejection != nil {
		return nil, rejection
	}

	// 5. directional bias advisory: detection only, never a veto
	advisory := g.checkBiasAdvisory(signal, snap.Window)

	return &Admission{
		Signal:         signal,
		SizeMultiplier: snap.Account.Mode.SizeMultiplier(),
		BiasAdvisory:   advisory,
	}, nil
}

func (g *Guardian) checkLiveConflict(ctx context.Context, instrument domain.Instrument) *domain.Rejection {
	queryCtx, cancel := context.WithTimeout(ctx, g.cfg.ConflictTimeout)
	defer cancel()

	conflict, err := g.checker.HasOpenPosition(queryCtx, instrument)
	if err != nil {
		g.l.Error("live conflict check failed, rejecting",
			zap.String("instrument", instrument.String()),
			zap.Error(err))
		return domain.NewRejection(domain.StageGuardian, domain.RejectConflictUnknown, err.Error())
	}
	if conflict {
		g.l.Error("venue reports position unknown to local state",
			zap.String("instrument", instrument.String()))
		return domain.NewRejection(domain.StageGuardian, domain.RejectLiveConflict,
			fmt.Sprintf("venue reports open position on %s", instrument.String()))
	}
	return nil
}

func (g *Guardian) checkExposure(signal domain.TradeSignal, open []domain.Position) *domain.Rejection {
	openCount := 0
	sameDirection := 0
	for _, p := range open {
		if p.Status != domain.PositionOpen {
			continue
		}
		openCount++
		if p.Direction == signal.Direction {
			sameDirection++
		}
	}

	if g.cfg.MaxConcurrentPositions > 0 && openCount+1 > g.cfg.MaxConcurrentPositions {
		return domain.NewRejection(domain.StageGuardian, domain.RejectExposureLimit,
			fmt.Sprintf("open=%d max=%d", openCount, g.cfg.MaxConcurrentPositions))
	}

	if g.cfg.DirectionCeiling.IsPositive() && openCount > 0 {
		fraction := decimal.NewFromInt(int64(sameDirection + 1)).
			Div(decimal.NewFromInt(int64(openCount + 1)))
		if fraction.GreaterThan(g.cfg.DirectionCeiling) {
			return domain.NewRejection(domain.StageGuardian, domain.RejectDirectionalCeiling,
				fmt.Sprintf("direction=%s fraction=%s ceiling=%s",
					signal.Direction, fraction, g.cfg.DirectionCeiling))
		}
	}

	return nil
}

func (g *Guardian) checkBiasAdvisory(signal domain.TradeSignal, window []domain.Direction) bool {
	if len(window) == 0 || !g.cfg.BiasFraction.IsPositive() {
		return false
	}

	counts := map[domain.Direction]int{}
	for _, d := range window {
		counts[d]++
	}

	dominant, best := domain.DirectionSkip, 0
	for _, d := range []domain.Direction{domain.DirectionUp, domain.DirectionDown} {
		if counts[d] > best {
			dominant, best = d, counts[d]
		}
	}
	if dominant == domain.DirectionSkip {
		return false
	}

	fraction := decimal.NewFromInt(int64(best)).Div(decimal.NewFromInt(int64(len(window))))
	if fraction.GreaterThanOrEqual(g.cfg.BiasFraction) {
		g.l.Warn("directional bias advisory",
			zap.String("instrument", signal.Instrument.String()),
			zap.String("dominant", dominant.String()),
			zap.String("fraction", fraction.String()),
			zap.Int("window", len(window)))
		return true
	}
	return false
}
