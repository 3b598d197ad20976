package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Epoch is one decision window for an instrument. The reference price is
// the underlying's price recorded at the moment the epoch opened; the
// epoch resolves up or down against it.
type Epoch struct {
	Instrument     Instrument
	Start          time.Time
	End            time.Time
	ReferencePrice decimal.Decimal
}

// Key uniquely identifies the epoch, e.g. "BTC_USDT:1767225600".
func (e Epoch) Key() string {
	return e.Instrument.String() + ":" + strconv.FormatInt(e.Start.Unix(), 10)
}

// Contains reports whether t falls inside the epoch window.
func (e Epoch) Contains(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

// Ended reports whether the epoch window has closed at t.
func (e Epoch) Ended(t time.Time) bool {
	return !t.Before(e.End)
}
