package consensus

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// ConfidenceSource selects which aggregate feeds the signal's confidence.
type ConfidenceSource string

const (
	// ConfidenceFromScore attaches |weighted_score| to the signal.
	ConfidenceFromScore ConfidenceSource = "score"
	// ConfidenceFromAverage attaches avg_confidence to the signal.
	ConfidenceFromAverage ConfidenceSource = "average"
)

// Evaluator applies quorum, confidence-floor and threshold policy to the
// aggregator's output.
type Evaluator struct {
	minConfidence      decimal.Decimal
	consensusThreshold decimal.Decimal
	source             ConfidenceSource
}

// NewEvaluator builds an evaluator with the given policy.
func NewEvaluator(minConfidence, consensusThreshold decimal.Decimal, source ConfidenceSource) *Evaluator {
	if source == "" {
		source = ConfidenceFromScore
	}
	return &Evaluator{
		minConfidence:      minConfidence,
		consensusThreshold: consensusThreshold,
		source:             source,
	}
}

// Evaluate turns a consensus result into a trade signal or a typed rejection.
// Exactly one of the return values is non-nil.
func (e *Evaluator) Evaluate(result domain.ConsensusResult) (*domain.TradeSignal, *domain.Rejection) {
	if result.NoQuorum {
		return nil, domain.NewRejection(domain.StageConsensus, domain.RejectNoQuorum,
			fmt.Sprintf("contributing=%d", result.Contributing))
	}

	if result.AvgConfidence.LessThan(e.minConfidence) {
		return nil, domain.NewRejection(domain.StageConsensus, domain.RejectLowConfidence,
			fmt.Sprintf("avg_confidence=%s min=%s", result.AvgConfidence, e.minConfidence))
	}

	// A perfectly balanced score is ambiguity, not a direction. Defaulting a
	// tie to one side produces systematic bias, so it always rejects.
	if result.WeightedScore.IsZero() {
		return nil, domain.NewRejection(domain.StageConsensus, domain.RejectTie, "weighted_score=0")
	}

	if result.WeightedScore.Abs().LessThan(e.consensusThreshold) {
		return nil, domain.NewRejection(domain.StageConsensus, domain.RejectBelowThreshold,
			fmt.Sprintf("score=%s threshold=%s", result.WeightedScore, e.consensusThreshold))
	}

	confidence := result.WeightedScore.Abs()
	if e.source == ConfidenceFromAverage {
		confidence = result.AvgConfidence
	}

	direction := domain.DirectionUp
	if result.WeightedScore.IsNegative() {
		direction = domain.DirectionDown
	}

	return &domain.TradeSignal{
		Instrument: result.Instrument,
		EpochKey:   result.EpochKey,
		Direction:  direction,
		Confidence: confidence,
	}, nil
}
