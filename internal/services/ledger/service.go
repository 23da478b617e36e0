// Package ledger orders, validates and aggregates raw transactions before
// they reach the computation engine.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mcheron/trackfolio/internal/common"
	"github.com/mcheron/trackfolio/internal/interfaces"
	"github.com/mcheron/trackfolio/internal/models"
)

// Service implements interfaces.LedgerService.
type Service struct {
	source interfaces.TransactionSource
	prices interfaces.PriceProvider
	logger *common.Logger
}

// NewService creates a new ledger service.
func NewService(source interfaces.TransactionSource, prices interfaces.PriceProvider, logger *common.Logger) *Service {
	return &Service{
		source: source,
		prices: prices,
		logger: logger,
	}
}

// Load returns the currency's transactions ordered by date ascending and
// grouped by ticker, with same-day same-operation entries for a ticker
// merged into one. Merging happens before anything downstream sees the
// entries, so partial fills on one day cannot produce order-dependent
// rounding.
//
// Tickers failing an integrity check are dropped and reported; an invalid
// cash-only entry fails the whole load since the cash ledger cannot be
// trusted without it.
func (s *Service) Load(ctx context.Context, currency string) ([]models.Transaction, []models.Exclusion, error) {
	raw, err := s.source.Transactions(ctx, currency)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load transactions for %s: %w", currency, err)
	}

	dropped := make(map[string]string) // ticker -> first reason

	for _, tx := range raw {
		if err := tx.Validate(); err != nil {
			if tx.Ticker == "" {
				return nil, nil, fmt.Errorf("invalid cash transaction for %s on %s: %w",
					currency, tx.Date.Format("2006-01-02"), err)
			}
			exclude(dropped, tx.Ticker, err.Error())
		}
	}

	detectDuplicates(raw, dropped)

	kept := make([]models.Transaction, 0, len(raw))
	for _, tx := range raw {
		if _, bad := dropped[tx.Ticker]; tx.Ticker != "" && bad {
			continue
		}
		kept = append(kept, tx)
	}

	merged := mergeSameDay(kept)

	// Order by date, then ticker for a stable grouping. Cash-only entries
	// (empty ticker) sort first within a day.
	sort.SliceStable(merged, func(i, j int) bool {
		di, dj := models.Day(merged[i].Date), models.Day(merged[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return merged[i].Ticker < merged[j].Ticker
	})

	merged = s.checkPriceCoverage(ctx, merged, dropped)

	exclusions := make([]models.Exclusion, 0, len(dropped))
	for _, ticker := range sortedKeys(dropped) {
		reason := dropped[ticker]
		s.logger.Warn().
			Str("currency", currency).
			Str("ticker", ticker).
			Str("reason", reason).
			Msg("Ticker excluded from ledger")
		exclusions = append(exclusions, models.Exclusion{Ticker: ticker, Reason: reason})
	}

	s.logger.Debug().
		Str("currency", currency).
		Int("raw", len(raw)).
		Int("merged", len(merged)).
		Int("excluded", len(exclusions)).
		Msg("Ledger loaded")

	return merged, exclusions, nil
}

// exclude records the first reason a ticker was dropped; later faults on the
// same ticker do not overwrite it.
func exclude(dropped map[string]string, ticker, reason string) {
	if _, ok := dropped[ticker]; !ok {
		dropped[ticker] = reason
	}
}

// detectDuplicates flags byte-identical entries. Partial fills on one day
// differ in amount or quantity; two entries agreeing on every field are a
// re-ingestion fault, not a fill.
func detectDuplicates(txs []models.Transaction, dropped map[string]string) {
	seen := make(map[models.Transaction]bool, len(txs))
	for _, tx := range txs {
		key := tx
		key.Date = models.Day(tx.Date)
		if seen[key] && tx.Ticker != "" {
			err := &models.IntegrityError{
				Ticker: tx.Ticker,
				Reason: fmt.Sprintf("duplicate %s transaction on %s", tx.Operation, key.Date.Format("2006-01-02")),
			}
			exclude(dropped, tx.Ticker, err.Reason)
		}
		seen[key] = true
	}
}

// mergeSameDay folds entries sharing (ticker, operation, day) into one,
// preserving first-seen order of the groups.
func mergeSameDay(txs []models.Transaction) []models.Transaction {
	groups := make(map[string][]models.Transaction)
	var order []string
	for _, tx := range txs {
		key := tx.Key()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], tx)
	}

	merged := make([]models.Transaction, 0, len(order))
	for _, key := range order {
		merged = append(merged, models.MergeSameDay(groups[key]))
	}
	return merged
}

// checkPriceCoverage drops tickers transacted before their first known
// price. Cost basis on a day with no price history cannot be valued, which
// poisons every derived series for that ticker.
func (s *Service) checkPriceCoverage(ctx context.Context, txs []models.Transaction, dropped map[string]string) []models.Transaction {
	checked := make(map[string]bool)
	for _, tx := range txs {
		if tx.Ticker == "" || checked[tx.Ticker] {
			continue
		}
		checked[tx.Ticker] = true

		prices, err := s.prices.DailyCloses(ctx, tx.Ticker)
		if err != nil {
			exclude(dropped, tx.Ticker, fmt.Sprintf("no price history: %v", err))
			continue
		}

		first := firstTickerDate(txs, tx.Ticker)
		if first.Before(prices.Start()) {
			exclude(dropped, tx.Ticker, fmt.Sprintf("transaction on %s predates first known price on %s",
				first.Format("2006-01-02"), prices.Start().Format("2006-01-02")))
		}
	}

	if len(dropped) == 0 {
		return txs
	}
	kept := txs[:0]
	for _, tx := range txs {
		if _, bad := dropped[tx.Ticker]; tx.Ticker != "" && bad {
			continue
		}
		kept = append(kept, tx)
	}
	return kept
}

func firstTickerDate(txs []models.Transaction, ticker string) time.Time {
	var earliest time.Time
	for _, tx := range txs {
		if tx.Ticker != ticker {
			continue
		}
		d := models.Day(tx.Date)
		if earliest.IsZero() || d.Before(earliest) {
			earliest = d
		}
	}
	return earliest
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
