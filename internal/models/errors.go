package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotComputable is returned for metrics whose inputs are degenerate
// (zero holding period, negative compounding base, empty series). This is an
// expected state for young positions, not a data fault.
var ErrNotComputable = errors.New("metric not computable")

// IntegrityError marks a ticker whose ledger contradicts available reference
// data: transactions before the first known price, or duplicated entries.
// The ticker is excluded from the run; other tickers are unaffected.
type IntegrityError struct {
	Ticker string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error for %s: %s", e.Ticker, e.Reason)
}

// NegativePositionError marks a sell that exceeds the quantity held. It is
// always fatal for the ticker: it indicates bad source data or an unmodeled
// corporate action (e.g. a split), never something to clamp silently.
type NegativePositionError struct {
	Ticker string
	Date   time.Time
	Held   float64
	Sold   float64
}

func (e *NegativePositionError) Error() string {
	return fmt.Sprintf("sell of %.6f %s on %s exceeds %.6f held",
		e.Sold, e.Ticker, e.Date.Format("2006-01-02"), e.Held)
}

// MissingRateError marks an FX conversion request for a pair with no rate
// data in range. It propagates to the caller; skipping the conversion would
// corrupt every aggregated total downstream.
type MissingRateError struct {
	Base  string
	Quote string
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("no FX rate available for %s/%s", e.Base, e.Quote)
}
