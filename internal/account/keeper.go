// Package account owns the engine's mutable capital state. All mutations go
// through a single goroutine so invariant checks stay centralized.
package account

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/verdict/internal/domain"
	"github.com/vadiminshakov/verdict/internal/storage/state"
)

var (
	// ErrNotHalted is returned when resume is requested on a running account.
	ErrNotHalted = errors.New("account is not halted")
	// ErrStillInDrawdown is returned when resume is requested while drawdown
	// still exceeds the halt threshold.
	ErrStillInDrawdown = errors.New("drawdown still exceeds halt threshold")
	// ErrPositionNotFound is returned when resolving an unknown position.
	ErrPositionNotFound = errors.New("no open position for epoch")
	// ErrInsufficientCash is returned when an admit exceeds the cash balance.
	ErrInsufficientCash = errors.New("insufficient cash for stake")
)

// StateStore persists keeper state durably and atomically.
type StateStore interface {
	Load() (state.State, bool, error)
	Save(state.State) error
}

type request struct {
	fn   func() error
	resp chan error
}

// Keeper is the single writer over Account, open positions and the direction
// window. Everything else receives copies through Snapshot.
type Keeper struct {
	l        *zap.Logger
	store    StateStore
	requests chan request

	account    domain.Account
	positions  []domain.Position
	window     *domain.DirectionWindow
	windowSize int
	day        time.Time

	now func() time.Time
}

// NewKeeper loads the last durable snapshot, or starts fresh from
// startBalance when none exists.
func NewKeeper(l *zap.Logger, store StateStore, startBalance decimal.Decimal, windowSize int) (*Keeper, error) {
	if l == nil {
		l = zap.NewNop()
	}

	if windowSize < 1 {
		windowSize = 20
	}
	k := &Keeper{
		l:          l,
		store:      store,
		requests:   make(chan request),
		window:     domain.NewDirectionWindow(windowSize),
		windowSize: windowSize,
		now:        time.Now,
	}

	st, found, err := store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load account state")
	}
	if found {
		k.account = st.Account
		k.positions = st.OpenPositions
		k.window.Restore(state.DecodeWindow(st.Window))
		l.Info("account state recovered",
			zap.String("cash", st.Account.CashBalance.String()),
			zap.String("peak", st.Account.PeakBalance.String()),
			zap.String("mode", string(st.Account.Mode)),
			zap.Int("open_positions", len(st.OpenPositions)))
	} else {
		k.account = domain.NewAccount(startBalance)
		l.Info("starting with fresh account", zap.String("balance", startBalance.String()))
	}
	k.day = k.now().UTC().Truncate(24 * time.Hour)

	return k, nil
}

// Run serves mutation requests until the context is canceled.
func (k *Keeper) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-k.requests:
			req.resp <- req.fn()
		}
	}
}

func (k *Keeper) do(ctx context.Context, fn func() error) error {
	req := request{fn: fn, resp: make(chan error, 1)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case k.requests <- req:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-req.resp:
		return err
	}
}

// Snapshot returns a read-only copy of the current state.
func (k *Keeper) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := k.do(ctx, func() error {
		positions := make([]domain.Position, len(k.positions))
		copy(positions, k.positions)
		snap = domain.Snapshot{
			Account:       k.account,
			OpenPositions: positions,
			Window:        k.window.Directions(),
		}
		return nil
	})
	return snap, err
}

// mutate applies fn to working copies, validates the invariant, re-evaluates
// the mode and persists. Any failure aborts the whole mutation: the last
// durable snapshot stays intact and in-memory state is unchanged.
func (k *Keeper) mutate(fn func(acc *domain.Account, positions *[]domain.Position, window *domain.DirectionWindow) error) error {
	acc := k.account
	positions := make([]domain.Position, len(k.positions))
	copy(positions, k.positions)
	window := domain.NewDirectionWindow(k.windowSize)
	window.Restore(k.window.Directions())

	k.rollDay(&acc)

	if err := fn(&acc, &positions, window); err != nil {
		return err
	}

	if err := acc.Validate(); err != nil {
		k.l.Error("account mutation aborted", zap.Error(err))
		return err
	}

	// halted does not self-heal; every other mode follows drawdown
	if k.account.Mode != domain.ModeHalted {
		acc.Mode = domain.ModeForDrawdown(acc.DrawdownPercent())
	}

	if err := k.store.Save(state.State{
		Account:       acc,
		OpenPositions: positions,
		Window:        state.EncodeWindow(window.Directions()),
	}); err != nil {
		k.l.Error("state persistence failed, mutation aborted", zap.Error(err))
		return errors.Wrap(err, "persist account state")
	}

	k.account = acc
	k.positions = positions
	k.window = window
	return nil
}

func (k *Keeper) rollDay(acc *domain.Account) {
	today := k.now().UTC().Truncate(24 * time.Hour)
	if today.After(k.day) {
		acc.DailyPnL = decimal.Zero
		k.day = today
	}
}

// ApplyAdmit reserves the stake for a freshly admitted position and records
// its direction in the bias window.
func (k *Keeper) ApplyAdmit(ctx context.Context, pos domain.Position) error {
	return k.do(ctx, func() error {
		return k.mutate(func(acc *domain.Account, positions *[]domain.Position, window *domain.DirectionWindow) error {
			if acc.CashBalance.LessThan(pos.Size) {
				return errors.Wrapf(ErrInsufficientCash, "cash=%s stake=%s", acc.CashBalance, pos.Size)
			}
			acc.CashBalance = acc.CashBalance.Sub(pos.Size)
			*positions = append(*positions, pos)
			window.Push(pos.Direction)
			return nil
		})
	})
}

// Release refunds the stake of a position whose intent never reached the
// venue. No streak or PnL bookkeeping applies.
func (k *Keeper) Release(ctx context.Context, instrument domain.Instrument, epochKey string) error {
	return k.do(ctx, func() error {
		return k.mutate(func(acc *domain.Account, positions *[]domain.Position, _ *domain.DirectionWindow) error {
			idx := findOpen(*positions, instrument, epochKey)
			if idx < 0 {
				return errors.Wrapf(ErrPositionNotFound, "%s %s", instrument, epochKey)
			}
			acc.CashBalance = acc.CashBalance.Add((*positions)[idx].Size)
			*positions = append((*positions)[:idx], (*positions)[idx+1:]...)
			return nil
		})
	})
}

// Resolve settles an open position. payout is the gross cash returned on a
// win (stake plus winnings); losses return nothing. Peak balance moves only
// here, from realized cash gains.
func (k *Keeper) Resolve(ctx context.Context, instrument domain.Instrument, epochKey string, won bool, payout decimal.Decimal) error {
	return k.do(ctx, func() error {
		return k.mutate(func(acc *domain.Account, positions *[]domain.Position, _ *domain.DirectionWindow) error {
			idx := findOpen(*positions, instrument, epochKey)
			if idx < 0 {
				return errors.Wrapf(ErrPositionNotFound, "%s %s", instrument, epochKey)
			}
			pos := (*positions)[idx]
			*positions = append((*positions)[:idx], (*positions)[idx+1:]...)

			if won {
				acc.CashBalance = acc.CashBalance.Add(payout)
				acc.DailyPnL = acc.DailyPnL.Add(payout.Sub(pos.Size))
				acc.ConsecutiveWins++
				acc.ConsecutiveLosses = 0
				if acc.CashBalance.GreaterThan(acc.PeakBalance) {
					acc.PeakBalance = acc.CashBalance
				}
			} else {
				acc.DailyPnL = acc.DailyPnL.Sub(pos.Size)
				acc.ConsecutiveLosses++
				acc.ConsecutiveWins = 0
			}

			k.l.Info("position resolved",
				zap.String("instrument", instrument.String()),
				zap.String("epoch", epochKey),
				zap.Bool("won", won),
				zap.String("payout", payout.String()),
				zap.String("cash", acc.CashBalance.String()))
			return nil
		})
	})
}

// Resume clears a halt. It is rejected while drawdown still exceeds the halt
// threshold, and on accounts that are not halted.
func (k *Keeper) Resume(ctx context.Context) error {
	return k.do(ctx, func() error {
		if k.account.Mode != domain.ModeHalted {
			return ErrNotHalted
		}
		dd := k.account.DrawdownPercent()
		if dd.GreaterThanOrEqual(domain.HaltThreshold) {
			return errors.Wrapf(ErrStillInDrawdown, "drawdown=%s%%", dd)
		}

		acc := k.account
		acc.Mode = domain.ModeForDrawdown(dd)
		if err := k.store.Save(state.State{
			Account:       acc,
			OpenPositions: k.positions,
			Window:        state.EncodeWindow(k.window.Directions()),
		}); err != nil {
			return errors.Wrap(err, "persist resume")
		}
		k.account = acc
		k.l.Warn("halt cleared by external resume", zap.String("mode", string(acc.Mode)))
		return nil
	})
}

// Halt forces the account into halted mode (operator control surface).
func (k *Keeper) Halt(ctx context.Context) error {
	return k.do(ctx, func() error {
		acc := k.account
		acc.Mode = domain.ModeHalted
		if err := k.store.Save(state.State{
			Account:       acc,
			OpenPositions: k.positions,
			Window:        state.EncodeWindow(k.window.Directions()),
		}); err != nil {
			return errors.Wrap(err, "persist halt")
		}
		k.account = acc
		k.l.Warn("account halted by operator")
		return nil
	})
}

func findOpen(positions []domain.Position, instrument domain.Instrument, epochKey string) int {
	for i, p := range positions {
		if p.Instrument == instrument && p.EpochKey == epochKey && p.Status == domain.PositionOpen {
			return i
		}
	}
	return -1
}
