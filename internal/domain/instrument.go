package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// Instrument identifies a binary up/down market on a base/quote pair.
type Instrument struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// ParseInstrument parses "BASE_QUOTE" notation, e.g. "BTC_USDT".
func ParseInstrument(s string) (Instrument, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Instrument{}, errors.Errorf("invalid instrument format %q, expected BASE_QUOTE", s)
	}
	return Instrument{Base: parts[0], Quote: parts[1]}, nil
}

// String returns the canonical "BASE_QUOTE" form.
func (i Instrument) String() string {
	return i.Base + "_" + i.Quote
}

// Symbol returns the exchange symbol form without separator, e.g. "BTCUSDT".
func (i Instrument) Symbol() string {
	return i.Base + i.Quote
}
