// Package consensus combines producer votes into a single trade-or-skip signal.
package consensus

import (
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// ProducerWeight is the static per-producer aggregation configuration.
// Weight may be negative: an inverted producer contributes against its own
// stated direction.
type ProducerWeight struct {
	Weight        decimal.Decimal
	MinConfidence decimal.Decimal
}

// Aggregator computes a bounded weighted consensus over one tick's votes.
// Pure: no side effects beyond its static configuration.
type Aggregator struct {
	weights       map[string]ProducerWeight
	defaultWeight decimal.Decimal
	defaultFloor  decimal.Decimal
	quorum        int
}

// NewAggregator builds an aggregator with per-producer weights and confidence
// floors. Producers absent from weights get defaultWeight and defaultFloor.
func NewAggregator(weights map[string]ProducerWeight, defaultFloor decimal.Decimal, quorum int) *Aggregator {
	if quorum < 1 {
		quorum = 2
	}
	return &Aggregator{
		weights:       weights,
		defaultWeight: decimal.NewFromInt(1),
		defaultFloor:  defaultFloor,
		quorum:        quorum,
	}
}

// Aggregate discards skip and below-floor votes, then computes the weighted
// AVERAGE of the survivors:
//
//	weighted_score = Σ(w_i · sign_i · confidence_i) / Σ|w_i|
//
// Averaging (never summing) keeps the score in [-1, 1] no matter how many
// votes agree; a pile of weak votes cannot stack into a false strong one.
func (a *Aggregator) Aggregate(instrument domain.Instrument, epochKey string, votes []domain.Vote) domain.ConsensusResult {
	result := domain.ConsensusResult{
		Instrument:    instrument,
		EpochKey:      epochKey,
		Direction:     domain.DirectionSkip,
		WeightedScore: decimal.Zero,
		AvgConfidence: decimal.Zero,
	}

	var (
		scoreSum  decimal.Decimal
		weightSum decimal.Decimal
		confSum   decimal.Decimal
	)

	for _, v := range votes {
		if v.IsSkip() {
			result.Skipped++
			continue
		}

		weight, floor := a.settingsFor(v.ProducerID)
		if v.Confidence.LessThan(floor) {
			// a low-confidence vote must not silently count as a weak agree
			result.Skipped++
			continue
		}

		scoreSum = scoreSum.Add(weight.Mul(v.Direction.Sign()).Mul(v.Confidence))
		weightSum = weightSum.Add(weight.Abs())
		confSum = confSum.Add(v.Confidence)
		result.Contributing++
	}

	if result.Contributing < a.quorum {
		result.NoQuorum = true
		return result
	}

	if weightSum.IsZero() {
		result.NoQuorum = true
		return result
	}

	result.WeightedScore = scoreSum.Div(weightSum)
	result.AvgConfidence = confSum.Div(decimal.NewFromInt(int64(result.Contributing)))

	switch {
	case result.WeightedScore.IsPositive():
		result.Direction = domain.DirectionUp
	case result.WeightedScore.IsNegative():
		result.Direction = domain.DirectionDown
	}

	return result
}

func (a *Aggregator) settingsFor(producerID string) (weight, floor decimal.Decimal) {
	if w, ok := a.weights[producerID]; ok {
		return w.Weight, w.MinConfidence
	}
	return a.defaultWeight, a.defaultFloor
}
