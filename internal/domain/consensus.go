package domain

import (
	"github.com/shopspring/decimal"
)

// ConsensusResult is the aggregator's output for one tick. WeightedScore
// is bounded to [-1, 1]; Contributing counts the votes that survived the
// skip and confidence-floor filters.
type ConsensusResult struct {
	Instrument    Instrument
	EpochKey      string
	Direction     Direction
	WeightedScore decimal.Decimal
	AvgConfidence decimal.Decimal
	Contributing  int
	Skipped       int
	NoQuorum      bool
}

// TradeSignal is a consensus outcome strong enough to act on. It carries
// the confidence the sizing stage uses as its win probability estimate.
type TradeSignal struct {
	Instrument Instrument
	EpochKey   string
	Direction  Direction
	Confidence decimal.Decimal
}
