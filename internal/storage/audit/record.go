// Package audit persists an append-only record of every tick outcome.
// The log is a pure side effect: it is never read back into a decision.
package audit

import (
	"time"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// Outcome distinguishes admits from skips.
type Outcome string

const (
	OutcomeAdmit Outcome = "admit"
	OutcomeSkip  Outcome = "skip"
)

// Record is one tick outcome for one instrument.
type Record struct {
	Time          time.Time     `json:"ts"`
	Instrument    string        `json:"instrument"`
	EpochKey      string        `json:"epoch_key"`
	Votes         []domain.Vote `json:"votes,omitempty"`
	WeightedScore string        `json:"weighted_score,omitempty"`
	AvgConfidence string        `json:"avg_confidence,omitempty"`
	Outcome       Outcome       `json:"outcome"`
	Stage         string        `json:"stage,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Detail        string        `json:"detail,omitempty"`
	Direction     string        `json:"direction,omitempty"`
	Size          string        `json:"size,omitempty"`
	IntentID      string        `json:"intent_id,omitempty"`
	BiasAdvisory  bool          `json:"bias_advisory,omitempty"`
}

// NewSkipRecord builds a skip record from a rejection.
func NewSkipRecord(result domain.ConsensusResult, votes []domain.Vote, rejection *domain.Rejection) Record {
	return Record{
		Time:          time.Now().UTC(),
		Instrument:    result.Instrument.String(),
		EpochKey:      result.EpochKey,
		Votes:         votes,
		WeightedScore: result.WeightedScore.String(),
		AvgConfidence: result.AvgConfidence.String(),
		Outcome:       OutcomeSkip,
		Stage:         string(rejection.Stage),
		Reason:        string(rejection.Reason),
		Detail:        rejection.Detail,
	}
}

// NewAdmitRecord builds an admit record for an emitted trade intent.
func NewAdmitRecord(result domain.ConsensusResult, votes []domain.Vote, intent domain.TradeIntent, biasAdvisory bool) Record {
	return Record{
		Time:          time.Now().UTC(),
		Instrument:    result.Instrument.String(),
		EpochKey:      result.EpochKey,
		Votes:         votes,
		WeightedScore: result.WeightedScore.String(),
		AvgConfidence: result.AvgConfidence.String(),
		Outcome:       OutcomeAdmit,
		Direction:     intent.Direction.String(),
		Size:          intent.Size.String(),
		IntentID:      intent.ID,
		BiasAdvisory:  biasAdvisory,
	}
}
