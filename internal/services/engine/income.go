package engine

import (
	"time"

	"github.com/mcheron/trackfolio/internal/models"
)

// dividendSeries returns the cumulative dividend income of the given
// transactions, net of fees. Withholding already reflected in the amount
// stays reflected; nothing is grossed back up.
func dividendSeries(txs []models.Transaction, start, end time.Time) *models.Series {
	dividends := models.NewSeries(start, end)
	for _, tx := range txs {
		if tx.Operation == models.OpDividend {
			dividends.AddFrom(tx.Date, tx.Amount-tx.Fees)
		}
	}
	return dividends
}

// feesSeries returns the cumulative fee drag across every operation type.
// Tracked apart from gain so fee cost stays visible even when performance
// is positive.
func feesSeries(txs []models.Transaction, start, end time.Time) *models.Series {
	fees := models.NewSeries(start, end)
	for _, tx := range txs {
		if tx.Fees != 0 {
			fees.AddFrom(tx.Date, tx.Fees)
		}
	}
	return fees
}

// CashSeries returns the cumulative uninvested liquidity balance implied by
// the transactions: deposits, sale proceeds, dividends and interest in;
// buys, withdrawals and fees out.
//
// The balance is allowed below zero (an overdraft is representable), but a
// negative balance usually means a missing deposit record, so the first
// occurrence is logged as a warning rather than suppressed.
func (s *Service) CashSeries(txs []models.Transaction, start, end time.Time) *models.Series {
	// Daily net flows under the zero-fill policy, then a running sum: cash
	// does not drift on days without activity, and flows outside the range
	// are dropped.
	points := make([]models.SeriesPoint, 0, len(txs))
	for _, tx := range txs {
		points = append(points, models.SeriesPoint{Date: tx.Date, Value: tx.CashFlow()})
	}
	cash := models.NewSeriesFromPoints(points, start, end, models.GapFillZero).CumSum()

	warned := false
	cash.Each(func(day time.Time, balance float64) {
		if balance < 0 && !warned {
			warned = true
			s.logger.Warn().
				Str("date", day.Format("2006-01-02")).
				Float64("balance", balance).
				Msg("Cash balance dropped below zero")
		}
	})

	return cash
}
