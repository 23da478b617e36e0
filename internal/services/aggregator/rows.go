package aggregator

import (
	"sort"
	"time"

	"github.com/mcheron/trackfolio/internal/models"
)

// Rows flattens a run result into the long-format table consumed by the
// reporting layer: one row per (entity, metric, date). Ticker rows carry the
// per-ticker series; portfolio rows carry the folds plus the scalar metrics
// stamped on the final date.
func Rows(r *models.RunResult) []models.PerformanceRow {
	var rows []models.PerformanceRow

	add := func(entity string, metric models.MetricType, series *models.Series) {
		if series == nil {
			return
		}
		series.Each(func(day time.Time, v float64) {
			rows = append(rows, models.PerformanceRow{
				Date:              day,
				EntityName:        entity,
				MetricType:        metric,
				Value:             v,
				ReportingCurrency: r.ReportingCurrency,
				RunID:             r.RunID,
			})
		})
	}

	names := make([]string, 0, len(r.Tickers))
	for name := range r.Tickers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		tr := r.Tickers[name]
		add(name, models.MetricInvestedAmount, tr.Invested)
		add(name, models.MetricPRU, tr.PRU)
		add(name, models.MetricValuation, tr.Valuation)
		add(name, models.MetricUnrealizedGain, tr.UnrealizedGain)
		add(name, models.MetricPerformancePct, tr.PerformancePct)
		add(name, models.MetricPlusValueCumulative, tr.Realized)
		add(name, models.MetricDividends, tr.Dividends)
		add(name, models.MetricFees, tr.Fees)
	}

	p := r.PortfolioName
	add(p, models.MetricInvestedAmount, r.Invested)
	add(p, models.MetricValuation, r.Valuation)
	add(p, models.MetricUnrealizedGain, r.Gain)
	add(p, models.MetricPerformancePct, r.PerformancePct)
	add(p, models.MetricPlusValueCumulative, r.Realized)
	add(p, models.MetricDividends, r.Dividends)
	add(p, models.MetricDividendYield, r.DividendYield)
	add(p, models.MetricDividendEarn, r.DividendEarn)
	add(p, models.MetricCash, r.Cash)
	add(p, models.MetricFees, r.Fees)

	// Downsampled valuation levels for dashboards that chart at week or
	// month granularity without re-thinning the daily rows.
	if r.Valuation != nil {
		addPoints := func(metric models.MetricType, points []models.SeriesPoint) {
			for _, point := range points {
				rows = append(rows, models.PerformanceRow{
					Date:              point.Date,
					EntityName:        p,
					MetricType:        metric,
					Value:             point.Value,
					ReportingCurrency: r.ReportingCurrency,
					RunID:             r.RunID,
				})
			}
		}
		addPoints(models.MetricValuationWeekly, r.Valuation.DownsampleToWeekly())
		addPoints(models.MetricValuationMonthly, r.Valuation.DownsampleToMonthly())
	}

	for _, mr := range r.MonthlyReturns {
		rows = append(rows, models.PerformanceRow{
			Date:              mr.Month,
			EntityName:        p,
			MetricType:        models.MetricMonthlyReturnPct,
			Value:             mr.Pct,
			ReportingCurrency: r.ReportingCurrency,
			RunID:             r.RunID,
		})
	}

	if r.CAGR.Whole != nil && r.Valuation != nil {
		rows = append(rows, models.PerformanceRow{
			Date:              r.Valuation.End(),
			EntityName:        p,
			MetricType:        models.MetricCAGR,
			Value:             *r.CAGR.Whole,
			ReportingCurrency: r.ReportingCurrency,
			RunID:             r.RunID,
		})
	}

	return rows
}

// Entities lists every entity name a run produces rows for, used by the
// store's atomic replace.
func Entities(r *models.RunResult) []string {
	entities := make([]string, 0, len(r.Tickers)+1)
	for name := range r.Tickers {
		entities = append(entities, name)
	}
	sort.Strings(entities)
	return append(entities, r.PortfolioName)
}
