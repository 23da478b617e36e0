// Package aggregator runs the full computation: per-currency buckets fan out
// across tickers, results are normalized to the reporting currency and
// folded into portfolio totals with growth and risk metrics.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcheron/trackfolio/internal/common"
	"github.com/mcheron/trackfolio/internal/interfaces"
	"github.com/mcheron/trackfolio/internal/models"
	"github.com/mcheron/trackfolio/internal/services/engine"
)

// Service implements interfaces.AggregatorService.
type Service struct {
	ledger interfaces.LedgerService
	engine interfaces.EngineService
	fx     interfaces.CurrencyNormalizer
	source interfaces.TransactionSource
	logger *common.Logger

	portfolioName     string
	reportingCurrency string
	workers           int
	dividendLookback  int
	riskFreeRate      float64
}

// NewService creates the aggregator.
func NewService(
	ledgerSvc interfaces.LedgerService,
	engineSvc interfaces.EngineService,
	fx interfaces.CurrencyNormalizer,
	source interfaces.TransactionSource,
	config *common.Config,
	logger *common.Logger,
) *Service {
	return &Service{
		ledger:            ledgerSvc,
		engine:            engineSvc,
		fx:                fx,
		source:            source,
		logger:            logger,
		portfolioName:     config.PortfolioName,
		reportingCurrency: config.Engine.ReportingCurrency,
		workers:           config.Engine.Workers,
		dividendLookback:  config.Engine.DividendLookback,
		riskFreeRate:      config.Engine.RiskFreeRate,
	}
}

// bucketResult is one currency bucket's output before normalization.
type bucketResult struct {
	currency string
	tickers  map[string]*models.TickerResult
	txs      []models.Transaction // merged ledger, excluded tickers removed
	excluded []models.Exclusion
	err      error
}

// Run executes the whole pipeline. Per-ticker integrity failures are
// isolated into the exclusion report; any failure during normalization or
// the final fold aborts the run, since a partially-aggregated portfolio
// total is actively misleading.
func (s *Service) Run(ctx context.Context) (*models.RunResult, error) {
	runStart := time.Now()
	runID := uuid.NewString()

	currencies, err := s.source.Currencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	sort.Strings(currencies)

	s.logger.Info().
		Str("run_id", runID).
		Str("portfolio", s.portfolioName).
		Strs("currencies", currencies).
		Msg("Starting portfolio computation")

	// Fan out per currency bucket: buckets share no state until the fold.
	results := make([]bucketResult, len(currencies))
	var wg sync.WaitGroup
	for i, currency := range currencies {
		wg.Add(1)
		go func(i int, currency string) {
			defer wg.Done()
			results[i] = s.computeBucket(ctx, currency)
		}(i, currency)
	}
	wg.Wait()

	// An interrupt mid-run stops here, before the fold: nothing partial
	// reaches the caller or storage.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, b := range results {
		if b.err != nil {
			return nil, fmt.Errorf("currency bucket %s failed: %w", b.currency, b.err)
		}
	}

	result, err := s.fold(ctx, runID, results)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("run_id", runID).
		Int("tickers", len(result.Tickers)).
		Int("excluded", len(result.Excluded)).
		Dur("elapsed", time.Since(runStart)).
		Msg("Portfolio computation complete")

	return result, nil
}

// computeBucket loads one currency's ledger and runs each of its tickers
// through the engine concurrently. Ticker pipelines are mutually
// independent; a bounded worker pool keeps memory in check on wide
// portfolios.
func (s *Service) computeBucket(ctx context.Context, currency string) bucketResult {
	bucket := bucketResult{currency: currency, tickers: make(map[string]*models.TickerResult)}

	txs, excluded, err := s.ledger.Load(ctx, currency)
	if err != nil {
		bucket.err = err
		return bucket
	}
	bucket.excluded = excluded

	tickers := uniqueTickers(txs)

	type tickerOutcome struct {
		ticker string
		result *models.TickerResult
		err    error
	}

	sem := make(chan struct{}, s.workers)
	outcomes := make(chan tickerOutcome, len(tickers))
	var wg sync.WaitGroup

	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := s.engine.ComputeTicker(ctx, ticker, currency, txs)
			outcomes <- tickerOutcome{ticker: ticker, result: result, err: err}
		}(ticker)
	}

	// Fan-in barrier: nothing reads a ticker's series until its whole
	// pipeline has finished.
	wg.Wait()
	close(outcomes)

	dropped := make(map[string]bool)
	for o := range outcomes {
		if o.err == nil {
			bucket.tickers[o.ticker] = o.result
			continue
		}

		var integrity *models.IntegrityError
		var negative *models.NegativePositionError
		if errors.As(o.err, &integrity) || errors.As(o.err, &negative) {
			s.logger.Warn().
				Str("currency", currency).
				Str("ticker", o.ticker).
				Err(o.err).
				Msg("Ticker excluded from portfolio")
			bucket.excluded = append(bucket.excluded, models.Exclusion{Ticker: o.ticker, Reason: o.err.Error()})
			dropped[o.ticker] = true
			continue
		}

		bucket.err = fmt.Errorf("ticker %s: %w", o.ticker, o.err)
		return bucket
	}

	// Excluded tickers take their transactions with them: their buys and
	// sells must not distort the bucket's cash balance.
	if len(dropped) > 0 {
		kept := txs[:0]
		for _, tx := range txs {
			if !dropped[tx.Ticker] {
				kept = append(kept, tx)
			}
		}
		txs = kept
	}
	bucket.txs = txs

	sort.Slice(bucket.excluded, func(i, j int) bool {
		return bucket.excluded[i].Ticker < bucket.excluded[j].Ticker
	})
	return bucket
}

// fold normalizes every bucket to the reporting currency and sums the
// aligned series into portfolio totals. Any conversion failure is fatal
// here: a sum over mismatched currencies is not a portfolio value.
func (s *Service) fold(ctx context.Context, runID string, buckets []bucketResult) (*models.RunResult, error) {
	result := &models.RunResult{
		RunID:             runID,
		PortfolioName:     s.portfolioName,
		ReportingCurrency: s.reportingCurrency,
		Tickers:           make(map[string]*models.TickerResult),
	}

	var allTxs []models.Transaction
	for _, b := range buckets {
		result.Excluded = append(result.Excluded, b.excluded...)

		for _, tr := range b.tickers {
			// One symbol, one currency. Folding the same ticker out of two
			// buckets would overwrite one bucket's series.
			if _, dup := result.Tickers[tr.Ticker]; dup {
				return nil, fmt.Errorf("ticker %s appears in multiple currency buckets", tr.Ticker)
			}
			normalized, err := s.normalizeTicker(ctx, tr)
			if err != nil {
				return nil, fmt.Errorf("failed to normalize %s: %w", tr.Ticker, err)
			}
			result.Tickers[tr.Ticker] = normalized
		}

		converted, err := s.convertTransactions(ctx, b.txs, b.currency)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize %s transactions: %w", b.currency, err)
		}
		allTxs = append(allTxs, converted...)
	}

	sort.Slice(result.Excluded, func(i, j int) bool {
		return result.Excluded[i].Ticker < result.Excluded[j].Ticker
	})

	if len(result.Tickers) == 0 {
		return nil, fmt.Errorf("no tickers survived the run (%d excluded)", len(result.Excluded))
	}

	// Deterministic fold order so identical inputs produce byte-identical
	// sums regardless of map iteration.
	names := make([]string, 0, len(result.Tickers))
	for name := range result.Tickers {
		names = append(names, name)
	}
	sort.Strings(names)

	var valuations, investeds, gains, realizeds, dividends, fees []*models.Series
	for _, name := range names {
		tr := result.Tickers[name]
		valuations = append(valuations, tr.Valuation)
		investeds = append(investeds, tr.Invested)
		gains = append(gains, tr.UnrealizedGain)
		realizeds = append(realizeds, tr.Realized)
		dividends = append(dividends, tr.Dividends)
		fees = append(fees, tr.Fees)
	}

	result.Valuation = models.SumSeries(valuations...)
	result.Invested = models.SumSeries(investeds...)
	result.Realized = models.SumSeries(realizeds...)
	result.Dividends = models.SumSeries(dividends...)

	// Total gain: paper gain on open positions plus profit already banked.
	unrealized := models.SumSeries(gains...)
	result.Gain = models.SumSeries(unrealized, result.Realized)

	// Return on capital still deployed: netting realized gains out of the
	// denominator keeps capital returned by sells from diluting the ratio.
	investedMoney := result.Invested.Last() - result.Realized.Last()
	result.PerformancePct = result.Gain.Map(func(_ time.Time, g float64) float64 {
		if investedMoney <= 0 {
			return 0
		}
		return g / investedMoney * 100
	})

	sort.SliceStable(allTxs, func(i, j int) bool { return allTxs[i].Date.Before(allTxs[j].Date) })

	// Cash and fee ledgers over every surviving transaction.
	start, end := result.Valuation.Start(), result.Valuation.End()
	for _, tx := range allTxs {
		if d := models.Day(tx.Date); d.Before(start) {
			start = d
		}
	}
	result.Cash = s.engine.CashSeries(allTxs, start, end)
	result.Fees = feesTotal(allTxs, start, end)

	result.DividendEarn = result.Dividends.TrailingSum(s.dividendLookback)
	result.DividendYield = result.DividendEarn.Map(func(day time.Time, earn float64) float64 {
		if v := result.Valuation.At(day); v > 0 {
			return earn / v * 100
		}
		return 0
	})

	result.MonthlyReturns = engine.MonthlyReturns(result.Valuation, allTxs)
	result.CAGR = engine.CAGR(result.Valuation, result.Invested)
	result.Risk = s.riskMetrics(result.Valuation)

	return result, nil
}

// normalizeTicker converts a ticker's absolute-value series into the
// reporting currency. The performance percentage stays untouched: ratios
// are currency-invariant.
func (s *Service) normalizeTicker(ctx context.Context, tr *models.TickerResult) (*models.TickerResult, error) {
	if tr.Currency == s.reportingCurrency {
		return tr, nil
	}

	out := &models.TickerResult{
		Ticker:         tr.Ticker,
		Currency:       s.reportingCurrency,
		PerformancePct: tr.PerformancePct.Clone(),
	}

	convert := func(series *models.Series) (*models.Series, error) {
		return s.fx.Convert(ctx, series, tr.Currency, s.reportingCurrency)
	}

	var err error
	if out.Invested, err = convert(tr.Invested); err != nil {
		return nil, err
	}
	if out.PRU, err = convert(tr.PRU); err != nil {
		return nil, err
	}
	if out.Valuation, err = convert(tr.Valuation); err != nil {
		return nil, err
	}
	if out.UnrealizedGain, err = convert(tr.UnrealizedGain); err != nil {
		return nil, err
	}
	if out.Realized, err = convert(tr.Realized); err != nil {
		return nil, err
	}
	if out.Dividends, err = convert(tr.Dividends); err != nil {
		return nil, err
	}
	if out.Fees, err = convert(tr.Fees); err != nil {
		return nil, err
	}
	return out, nil
}

// convertTransactions restates transaction amounts in the reporting
// currency at each transaction's own date.
func (s *Service) convertTransactions(ctx context.Context, txs []models.Transaction, currency string) ([]models.Transaction, error) {
	if currency == s.reportingCurrency {
		return txs, nil
	}

	out := make([]models.Transaction, len(txs))
	for i, tx := range txs {
		amount, err := s.fx.ConvertAmount(ctx, tx.Amount, tx.Date, currency, s.reportingCurrency)
		if err != nil {
			return nil, err
		}
		fees, err := s.fx.ConvertAmount(ctx, tx.Fees, tx.Date, currency, s.reportingCurrency)
		if err != nil {
			return nil, err
		}
		tx.Amount = amount
		tx.Fees = fees
		tx.Currency = s.reportingCurrency
		out[i] = tx
	}
	return out, nil
}

func (s *Service) riskMetrics(valuation *models.Series) models.RiskMetrics {
	var risk models.RiskMetrics
	if sharpe, err := engine.SharpeRatio(valuation, s.riskFreeRate); err == nil {
		risk.SharpeRatio = &sharpe
	}
	if sortino, err := engine.SortinoRatio(valuation, s.riskFreeRate); err == nil {
		risk.SortinoRatio = &sortino
	}
	if vol, err := engine.Volatility(valuation); err == nil {
		risk.VolatilityPct = &vol
	}
	if dd, err := engine.MaxDrawdown(valuation); err == nil {
		risk.MaxDrawdown = dd
	}
	return risk
}

func feesTotal(txs []models.Transaction, start, end time.Time) *models.Series {
	fees := models.NewSeries(start, end)
	for _, tx := range txs {
		if tx.Fees != 0 {
			fees.AddFrom(tx.Date, tx.Fees)
		}
	}
	return fees
}

func uniqueTickers(txs []models.Transaction) []string {
	seen := make(map[string]bool)
	var tickers []string
	for _, tx := range txs {
		if tx.Ticker != "" && !seen[tx.Ticker] {
			seen[tx.Ticker] = true
			tickers = append(tickers, tx.Ticker)
		}
	}
	sort.Strings(tickers)
	return tickers
}
