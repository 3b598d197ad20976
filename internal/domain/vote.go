package domain

import (
	"github.com/shopspring/decimal"
)

// Direction is a producer's or the consensus's stance on an epoch.
type Direction int

const (
	DirectionSkip Direction = iota
	DirectionUp
	DirectionDown
)

// String returns the persisted string form of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "skip"
	}
}

// Sign maps the direction to its score contribution: +1 for up, -1 for
// down, 0 for skip.
func (d Direction) Sign() decimal.Decimal {
	switch d {
	case DirectionUp:
		return decimal.NewFromInt(1)
	case DirectionDown:
		return decimal.NewFromInt(-1)
	default:
		return decimal.Zero
	}
}

// ParseDirection restores a direction from its string form. Anything
// unrecognized reads as skip.
func ParseDirection(s string) Direction {
	switch s {
	case "up":
		return DirectionUp
	case "down":
		return DirectionDown
	default:
		return DirectionSkip
	}
}

// Vote is one producer's stance on the current epoch. Confidence and
// Quality are fractions in [0, 1].
type Vote struct {
	ProducerID string          `json:"producer_id"`
	Direction  Direction       `json:"direction"`
	Confidence decimal.Decimal `json:"confidence"`
	Quality    decimal.Decimal `json:"quality"`
	Rationale  string          `json:"rationale,omitempty"`
}

// NewSkipVote builds an explicit abstention.
func NewSkipVote(producerID, rationale string) Vote {
	return Vote{
		ProducerID: producerID,
		Direction:  DirectionSkip,
		Confidence: decimal.Zero,
		Quality:    decimal.Zero,
		Rationale:  rationale,
	}
}

// IsSkip reports whether the vote is an abstention.
func (v Vote) IsSkip() bool {
	return v.Direction == DirectionSkip
}
