package models

import "time"

// MetricType names one derived series in the persisted output.
type MetricType string

const (
	MetricInvestedAmount      MetricType = "invested_amount"
	MetricPRU                 MetricType = "pru"
	MetricValuation           MetricType = "valuation"
	MetricUnrealizedGain      MetricType = "unrealized_gain"
	MetricPerformancePct      MetricType = "performance_pct"
	MetricPlusValueCumulative MetricType = "plus_value_cumulative"
	MetricDividends           MetricType = "dividends"
	MetricDividendYield       MetricType = "dividend_yield"
	MetricDividendEarn        MetricType = "dividend_earn"
	MetricCash                MetricType = "cash"
	MetricFees                MetricType = "fees"
	MetricCAGR                MetricType = "cagr"
	MetricMonthlyReturnPct    MetricType = "monthly_return_pct"
	MetricValuationWeekly     MetricType = "valuation_weekly"
	MetricValuationMonthly    MetricType = "valuation_monthly"
)

// PerformanceRow is one point of the long-format output table consumed by
// the reporting layer: one (entity, metric, date) cell per row.
type PerformanceRow struct {
	Date              time.Time  `json:"date"`
	EntityName        string     `json:"entity_name"`
	MetricType        MetricType `json:"metric_type"`
	Value             float64    `json:"value"`
	ReportingCurrency string     `json:"reporting_currency"`
	RunID             string     `json:"run_id"`
}

// TickerResult bundles the full set of daily series computed for one ticker,
// in the ticker's native currency until the normalizer converts them.
type TickerResult struct {
	Ticker   string
	Currency string

	Invested       *Series // capital at cost currently deployed
	PRU            *Series // weighted-average cost per unit held
	Valuation      *Series // quantity × daily close
	UnrealizedGain *Series // valuation − invested
	PerformancePct *Series // unrealized gain as % of invested (currency-invariant)
	Realized       *Series // cumulative plus-value crystallized by sells
	Dividends      *Series // cumulative dividend income, net of fees
	Fees           *Series // cumulative fee drag across all operations
}

// Exclusion records a ticker dropped from the run and why. Partial success
// is explicit: the caller always sees the full list.
type Exclusion struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// CAGRHorizons holds compound annual growth rates per lookback horizon in
// years, with nil for horizons lacking enough history. Whole is the
// whole-period value.
type CAGRHorizons struct {
	ByYears map[int]*float64 `json:"by_years"`
	Whole   *float64         `json:"whole"`
}

// RiskMetrics holds risk indicators derived from the portfolio valuation.
type RiskMetrics struct {
	SharpeRatio   *float64  `json:"sharpe_ratio"`
	SortinoRatio  *float64  `json:"sortino_ratio"`
	VolatilityPct *float64  `json:"volatility_pct"`
	MaxDrawdown   *Drawdown `json:"max_drawdown"`
}

// Drawdown describes the deepest peak-to-trough decline of a valuation
// series.
type Drawdown struct {
	Pct    float64   `json:"pct"`
	Peak   time.Time `json:"peak"`
	Trough time.Time `json:"trough"`
}

// MonthlyReturn is the flow-adjusted return of one calendar month, keyed by
// the last day of the month.
type MonthlyReturn struct {
	Month time.Time `json:"month"`
	Pct   float64   `json:"pct"`
}

// RunResult is the complete output of one engine run: per-ticker series in
// the reporting currency, portfolio-level folds, and the exclusion report.
type RunResult struct {
	RunID             string
	PortfolioName     string
	ReportingCurrency string

	Tickers  map[string]*TickerResult
	Excluded []Exclusion

	Valuation      *Series
	Invested       *Series
	Gain           *Series // unrealized + realized, portfolio-wide
	PerformancePct *Series
	Realized       *Series
	Dividends      *Series
	DividendYield  *Series
	DividendEarn   *Series
	Cash           *Series
	Fees           *Series

	MonthlyReturns []MonthlyReturn
	CAGR           CAGRHorizons
	Risk           RiskMetrics
}
