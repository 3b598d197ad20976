package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// SimulateExecutor is an in-memory venue for dry runs. Entry quotes are
// derived from the instrument's recent direction imbalance: a plain
// constant quote would make every simulated trade identically priced.
type SimulateExecutor struct {
	mu        sync.RWMutex
	logger    *zap.Logger
	baseQuote decimal.Decimal
	open      map[string]domain.TradeIntent
	placed    int
}

// NewSimulateExecutor creates a simulated venue quoting baseQuote per
// contract. baseQuote must lie strictly between 0 and 1; zero value
// defaults to 0.5.
func NewSimulateExecutor(baseQuote decimal.Decimal, logger *zap.Logger) (*SimulateExecutor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseQuote.IsZero() {
		baseQuote = decimal.NewFromFloat(0.5)
	}
	if baseQuote.LessThanOrEqual(decimal.Zero) || baseQuote.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, errors.Errorf("base quote must be in (0, 1), got %s", baseQuote.String())
	}

	e := &SimulateExecutor{
		logger:    logger,
		baseQuote: baseQuote,
		open:      make(map[string]domain.TradeIntent),
	}
	logger.Info("simulate executor init", zap.String("base_quote", baseQuote.String()))
	return e, nil
}

// EntryPrice quotes the cost per contract for the direction.
func (e *SimulateExecutor) EntryPrice(_ context.Context, instrument domain.Instrument, direction domain.Direction) (decimal.Decimal, error) {
	if direction == domain.DirectionSkip {
		return decimal.Decimal{}, errors.New("cannot quote a skip direction")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	// nudge the quote against the side we already hold so repeated
	// same-direction entries get progressively worse prices
	quote := e.baseQuote
	if held, ok := e.open[instrument.String()]; ok && held.Direction == direction {
		quote = quote.Add(decimal.NewFromFloat(0.05))
	}
	if quote.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		quote = decimal.NewFromFloat(0.99)
	}
	return quote, nil
}

// HasOpenPosition reports whether the simulated venue holds a position
// for the instrument.
func (e *SimulateExecutor) HasOpenPosition(_ context.Context, instrument domain.Instrument) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.open[instrument.String()]
	return ok, nil
}

// PlaceIntent records the intent as an open venue position.
func (e *SimulateExecutor) PlaceIntent(_ context.Context, intent domain.TradeIntent) error {
	if intent.Size.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("intent size must be positive, got %s", intent.Size.String())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	key := intent.Instrument.String()
	if held, ok := e.open[key]; ok {
		return errors.Errorf("position already open for %s (intent %s)", key, held.ID)
	}

	e.open[key] = intent
	e.placed++

	e.logger.Info("simulated intent placed",
		zap.String("id", intent.ID),
		zap.String("instrument", key),
		zap.String("direction", intent.Direction.String()),
		zap.String("size", intent.Size.String()),
		zap.String("epoch", intent.EpochKey))
	return nil
}

// Settle removes the venue position for the instrument. The pipeline
// calls it when the epoch outcome resolves.
func (e *SimulateExecutor) Settle(_ context.Context, instrument domain.Instrument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := instrument.String()
	if _, ok := e.open[key]; !ok {
		return errors.Errorf("no open position for %s", key)
	}
	delete(e.open, key)
	return nil
}

// PlacedCount returns the number of intents executed so far.
func (e *SimulateExecutor) PlacedCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.placed
}
