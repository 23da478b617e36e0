// Package interfaces defines the contracts between the engine, its upstream
// data providers, and storage.
package interfaces

import (
	"context"

	"github.com/mcheron/trackfolio/internal/models"
)

// TransactionSource supplies the normalized, append-only transaction log.
// Document parsing and categorization happen upstream; the engine only sees
// typed records.
type TransactionSource interface {
	// Currencies lists every currency with at least one transaction.
	Currencies(ctx context.Context) ([]string, error)

	// Transactions returns all transactions denominated in currency,
	// in no guaranteed order. The ledger service orders and aggregates them.
	Transactions(ctx context.Context, currency string) ([]models.Transaction, error)
}

// PriceProvider supplies daily closing prices per ticker. Series arrive
// already gap-filled: non-trading days carry the last close forward, and the
// leading gap is backfilled from the first close.
type PriceProvider interface {
	DailyCloses(ctx context.Context, ticker string) (*models.Series, error)
}

// FXProvider supplies daily exchange rates, gap-filled the same way as
// prices. Rate(base, quote) is the number of quote units per one base unit.
// Implementations return a models.MissingRateError when no data exists for
// the pair in either direction.
type FXProvider interface {
	Rate(ctx context.Context, base, quote string) (*models.Series, error)
}
