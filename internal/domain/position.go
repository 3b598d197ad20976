package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PositionStatus tracks the lifecycle of a position.
type PositionStatus string

const (
	PositionOpen     PositionStatus = "open"
	PositionResolved PositionStatus = "resolved"
)

// Position is a stake placed on one side of an epoch. Created on admit,
// mutated only by resolution. At most one open position may exist per
// (instrument, epoch).
type Position struct {
	Instrument Instrument      `json:"instrument"`
	EpochKey   string          `json:"epoch_key"`
	Direction  Direction       `json:"direction"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Size       decimal.Decimal `json:"size"`
	Status     PositionStatus  `json:"status"`
	OpenedAt   time.Time       `json:"opened_at"`
}

// NewPosition constructs an open position admitted by the guardian.
func NewPosition(instrument Instrument, epochKey string, direction Direction, entryPrice, size decimal.Decimal, openedAt time.Time) (Position, error) {
	if direction == DirectionSkip {
		return Position{}, errors.New("position direction must be up or down")
	}
	if size.LessThanOrEqual(decimal.Zero) {
		return Position{}, errors.New("position size must be greater than zero")
	}
	if entryPrice.LessThanOrEqual(decimal.Zero) {
		return Position{}, errors.New("entry price must be greater than zero")
	}

	return Position{
		Instrument: instrument,
		EpochKey:   epochKey,
		Direction:  direction,
		EntryPrice: entryPrice,
		Size:       size,
		Status:     PositionOpen,
		OpenedAt:   openedAt,
	}, nil
}

// TradeIntent is the pipeline's output handed to the execution collaborator.
type TradeIntent struct {
	ID         string
	Instrument Instrument
	EpochKey   string
	Direction  Direction
	Size       decimal.Decimal
	CreatedAt  time.Time
}
