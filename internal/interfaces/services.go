package interfaces

import (
	"context"
	"time"

	"github.com/mcheron/trackfolio/internal/models"
)

// LedgerService orders, validates and aggregates raw transactions for one
// currency before they reach the engine.
//
// Ticker-scoped integrity faults (duplicates, transactions predating price
// history) do not fail the load: the offending ticker's entries are dropped
// and reported in the exclusion list. Only faults that poison the whole
// currency bucket (unreachable source, invalid cash entries) return an error.
type LedgerService interface {
	Load(ctx context.Context, currency string) ([]models.Transaction, []models.Exclusion, error)
}

// EngineService computes the full series pipeline for a single ticker from
// its transactions and price history. It is a pure function of its inputs.
type EngineService interface {
	ComputeTicker(ctx context.Context, ticker, currency string, txs []models.Transaction) (*models.TickerResult, error)

	// CashSeries derives the cumulative cash balance implied by a set of
	// transactions over [start, end].
	CashSeries(txs []models.Transaction, start, end time.Time) *models.Series
}

// CurrencyNormalizer converts absolute-value series between currencies.
// Ratio series (performance percentages) are never converted: a ratio is
// currency-invariant.
type CurrencyNormalizer interface {
	Convert(ctx context.Context, series *models.Series, from, to string) (*models.Series, error)

	// ConvertAmount converts a single amount using the rate of one day.
	ConvertAmount(ctx context.Context, amount float64, day time.Time, from, to string) (float64, error)
}

// AggregatorService runs the whole pipeline: fan-out per currency bucket and
// per ticker, normalize, fold into portfolio totals, derive growth metrics.
type AggregatorService interface {
	Run(ctx context.Context) (*models.RunResult, error)
}
