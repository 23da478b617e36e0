// Package engine computes the per-ticker daily series pipeline: cost basis,
// valuation, realized gain, dividends and fees. Every computation is a pure
// function of the transactions and prices it is handed; recomputing with the
// same inputs yields identical output.
package engine

import (
	"context"
	"fmt"

	"github.com/mcheron/trackfolio/internal/common"
	"github.com/mcheron/trackfolio/internal/interfaces"
	"github.com/mcheron/trackfolio/internal/models"
)

// Service implements interfaces.EngineService.
type Service struct {
	prices   interfaces.PriceProvider
	strategy CostBasisStrategy
	logger   *common.Logger
}

// NewService creates an engine service using the weighted-average cost
// basis strategy.
func NewService(prices interfaces.PriceProvider, logger *common.Logger) *Service {
	return &Service{
		prices:   prices,
		strategy: AverageCostBasis{},
		logger:   logger,
	}
}

// WithStrategy substitutes the cost-basis strategy.
func (s *Service) WithStrategy(strategy CostBasisStrategy) *Service {
	s.strategy = strategy
	return s
}

// ComputeTicker runs the full pipeline for one ticker. txs is the currency
// bucket's ordered, pre-aggregated ledger; entries for other tickers are
// ignored. Series span from the ticker's first transaction to the last
// available price date.
func (s *Service) ComputeTicker(ctx context.Context, ticker, currency string, txs []models.Transaction) (*models.TickerResult, error) {
	var own []models.Transaction
	for _, tx := range txs {
		if tx.Ticker == ticker {
			own = append(own, tx)
		}
	}
	if len(own) == 0 {
		return nil, &models.IntegrityError{Ticker: ticker, Reason: "no transactions"}
	}

	prices, err := s.prices.DailyCloses(ctx, ticker)
	if err != nil {
		return nil, &models.IntegrityError{Ticker: ticker, Reason: fmt.Sprintf("no price history: %v", err)}
	}

	start := models.Day(own[0].Date)
	for _, tx := range own {
		if d := models.Day(tx.Date); d.Before(start) {
			start = d
		}
	}
	end := prices.End()
	if end.Before(start) {
		return nil, &models.IntegrityError{
			Ticker: ticker,
			Reason: fmt.Sprintf("price history ends %s, before first transaction %s",
				end.Format("2006-01-02"), start.Format("2006-01-02")),
		}
	}

	invested, pru, sells, err := replayPositions(s.strategy, ticker, own, start, end)
	if err != nil {
		return nil, err
	}

	valuation, gain, pct := computeValuation(invested, pru, prices)

	result := &models.TickerResult{
		Ticker:         ticker,
		Currency:       currency,
		Invested:       invested,
		PRU:            pru,
		Valuation:      valuation,
		UnrealizedGain: gain,
		PerformancePct: pct,
		Realized:       buildRealized(sells, start, end),
		Dividends:      dividendSeries(own, start, end),
		Fees:           feesSeries(own, start, end),
	}

	s.logger.Debug().
		Str("ticker", ticker).
		Str("currency", currency).
		Str("strategy", s.strategy.Name()).
		Int("transactions", len(own)).
		Int("days", invested.Len()).
		Msg("Ticker pipeline computed")

	return result, nil
}
