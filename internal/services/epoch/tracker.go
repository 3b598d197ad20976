// Package epoch tracks the current decision window per instrument.
package epoch

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// PriceSource provides the reference price recorded when a new epoch opens.
type PriceSource interface {
	GetPrice(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error)
}

// Tracker maintains the current epoch for each instrument. Epochs are
// aligned to wall-clock boundaries of the configured duration, so every
// process observing the same instrument agrees on epoch keys.
type Tracker struct {
	duration time.Duration
	prices   PriceSource
	l        *zap.Logger

	mu      sync.Mutex
	current map[string]domain.Epoch
}

// NewTracker creates a tracker with the given epoch duration.
func NewTracker(duration time.Duration, prices PriceSource, l *zap.Logger) (*Tracker, error) {
	if duration <= 0 {
		return nil, errors.New("epoch duration must be positive")
	}
	return &Tracker{
		duration: duration,
		prices:   prices,
		l:        l,
		current:  make(map[string]domain.Epoch),
	}, nil
}

// Current returns the epoch containing now for the instrument, opening a
// new one when the previous epoch has ended. Opening an epoch records the
// instrument's price at that moment as the epoch reference price.
func (t *Tracker) Current(ctx context.Context, instrument domain.Instrument, now time.Time) (domain.Epoch, error) {
	t.mu.Lock()
	ep, ok := t.current[instrument.String()]
	t.mu.Unlock()

	if ok && ep.Contains(now) {
		return ep, nil
	}

	ref, err := t.prices.GetPrice(ctx, instrument)
	if err != nil {
		return domain.Epoch{}, errors.Wrapf(err, "failed to fetch reference price for %s", instrument.String())
	}

	start := now.Truncate(t.duration)
	ep = domain.Epoch{
		Instrument:     instrument,
		Start:          start,
		End:            start.Add(t.duration),
		ReferencePrice: ref,
	}

	t.mu.Lock()
	t.current[instrument.String()] = ep
	t.mu.Unlock()

	t.l.Info("opened epoch",
		zap.String("instrument", instrument.String()),
		zap.String("epoch", ep.Key()),
		zap.String("reference_price", ref.String()))

	return ep, nil
}
