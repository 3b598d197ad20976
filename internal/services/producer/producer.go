// Package producer hosts the vote producers feeding the consensus stage.
package producer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// EpochContext is the per-tick input handed to every producer.
type EpochContext struct {
	Instrument   domain.Instrument
	Epoch        domain.Epoch
	CurrentPrice decimal.Decimal
}

// Producer emits one directional vote per epoch tick. A producer that
// has no opinion returns a skip vote, not an error; errors are reserved
// for failures to compute (missing data, upstream outage).
type Producer interface {
	ID() string
	GetVote(ctx context.Context, ectx EpochContext) (domain.Vote, error)
}
