package engine

import (
	"math"
	"time"

	"github.com/mcheron/trackfolio/internal/models"
)

// MonthlyReturns computes the flow-adjusted return of each calendar month of
// the valuation series.
//
// With no sells in the history, the naive (end−start)/start per month is
// already flow-free. Once sells exist, each month's start value is adjusted
// by the net buys and sells of that month so that adding money does not read
// as performing better. The very first buy of the first month is base
// capital, not a flow, and is excluded from the adjustment.
func MonthlyReturns(valuation *models.Series, txs []models.Transaction) []models.MonthlyReturn {
	if valuation == nil || valuation.Len() == 0 {
		return nil
	}

	hasSells := false
	for _, tx := range txs {
		if tx.Operation == models.OpSell {
			hasSells = true
			break
		}
	}

	var out []models.MonthlyReturn
	firstMonth := true

	for monthStart := firstOfMonth(valuation.Start()); !monthStart.After(valuation.End()); monthStart = monthStart.AddDate(0, 1, 0) {
		monthEnd := monthStart.AddDate(0, 1, -1)

		startVal := valuation.At(clampDay(valuation, monthStart))
		endVal := valuation.At(clampDay(valuation, monthEnd))
		if startVal <= 0 && endVal <= 0 {
			continue
		}

		var pct float64
		if !hasSells {
			if startVal <= 0 {
				continue
			}
			pct = (endVal - startVal) / startVal * 100
		} else {
			var netBuy, netSell float64
			first := true
			for _, tx := range txs {
				d := models.Day(tx.Date)
				if d.Before(monthStart) || d.After(monthEnd) {
					continue
				}
				switch tx.Operation {
				case models.OpBuy:
					netBuy += tx.Amount - tx.Fees
					if firstMonth && first {
						// Initial capital is the base of the measure,
						// not a contribution to adjust away.
						netBuy -= tx.Amount
						first = false
					}
				case models.OpSell:
					netSell += tx.Amount
				}
			}
			base := startVal + netBuy - netSell
			if base == 0 {
				continue
			}
			pct = (endVal/base - 1) * 100
		}

		out = append(out, models.MonthlyReturn{Month: monthEnd, Pct: pct})
		firstMonth = false
	}

	return out
}

// CAGR computes compound annual growth rates on multiple horizons plus the
// whole holding period. The whole-period rate follows
// (final_valuation / initial_invested)^(365/days_held) − 1; horizon rates
// compare the final valuation with the invested capital n years back.
//
// Horizons without enough history stay nil. Degenerate bases (zero holding
// period, non-positive capital, negative compounding base) yield nil rather
// than NaN or a panic; models.ErrNotComputable is the signaling form used by
// scalar helpers.
func CAGR(valuation, invested *models.Series, horizonYears ...int) models.CAGRHorizons {
	if len(horizonYears) == 0 {
		horizonYears = []int{1, 2, 3, 5, 10}
	}
	out := models.CAGRHorizons{ByYears: make(map[int]*float64, len(horizonYears))}
	for _, y := range horizonYears {
		out.ByYears[y] = nil
	}

	if valuation == nil || invested == nil {
		return out
	}

	firstHeld := firstPositiveDay(invested)
	if firstHeld.IsZero() {
		return out
	}

	finalVal := valuation.Last()
	end := valuation.End()

	// Whole period
	days := end.Sub(firstHeld).Hours() / 24
	if whole, err := annualizedGrowth(finalVal, invested.At(firstHeld), days); err == nil {
		out.Whole = &whole
	}

	// Fixed horizons, measured against the capital deployed n years ago
	heldDays := int(days) + 1
	for _, years := range horizonYears {
		span := 365 * years
		if heldDays < span {
			continue
		}
		base := invested.At(end.AddDate(0, 0, -span))
		if rate, err := annualizedGrowth(finalVal, base, float64(span)); err == nil {
			out.ByYears[years] = &rate
		}
	}

	return out
}

// annualizedGrowth returns the annualized percentage rate implied by growing
// base into final over days. Returns models.ErrNotComputable for degenerate
// inputs instead of producing NaN or a complex result.
func annualizedGrowth(final, base, days float64) (float64, error) {
	if days <= 0 || base <= 0 {
		return 0, models.ErrNotComputable
	}
	ratio := final / base
	if ratio <= 0 {
		return 0, models.ErrNotComputable
	}
	return (math.Pow(ratio, 365/days) - 1) * 100, nil
}

// dailyReturns lists day-over-day percentage changes of the valuation,
// starting from the first positive value.
func dailyReturns(valuation *models.Series) []float64 {
	var returns []float64
	prev := math.NaN()
	valuation.Each(func(_ time.Time, v float64) {
		if v <= 0 {
			return
		}
		if !math.IsNaN(prev) && prev > 0 {
			returns = append(returns, v/prev-1)
		}
		prev = v
	})
	return returns
}

// tradingDaysPerYear scales daily return statistics to annual figures.
const tradingDaysPerYear = 252

// SharpeRatio computes the annualized Sharpe ratio of the valuation series
// against the given annual risk-free rate.
func SharpeRatio(valuation *models.Series, riskFreeRate float64) (float64, error) {
	returns := dailyReturns(valuation)
	if len(returns) < 2 {
		return 0, models.ErrNotComputable
	}

	mean, std := meanStd(returns)
	if std == 0 {
		return 0, models.ErrNotComputable
	}

	annualReturn := mean * tradingDaysPerYear
	annualVol := std * math.Sqrt(tradingDaysPerYear)
	return (annualReturn - riskFreeRate) / annualVol, nil
}

// SortinoRatio is the Sharpe variant penalizing only downside deviation.
func SortinoRatio(valuation *models.Series, riskFreeRate float64) (float64, error) {
	returns := dailyReturns(valuation)
	if len(returns) < 2 {
		return 0, models.ErrNotComputable
	}

	dailyRf := math.Pow(1+riskFreeRate, 1.0/tradingDaysPerYear) - 1

	var excess []float64
	var downside float64
	var downsideCount int
	var sum float64
	for _, r := range returns {
		e := r - dailyRf
		excess = append(excess, e)
		sum += e
		if e < 0 {
			downside += e * e
			downsideCount++
		}
	}
	if downsideCount == 0 {
		return 0, models.ErrNotComputable
	}

	downsideDev := math.Sqrt(downside / float64(len(excess)))
	if downsideDev == 0 {
		return 0, models.ErrNotComputable
	}

	mean := sum / float64(len(excess))
	return mean / downsideDev * math.Sqrt(tradingDaysPerYear), nil
}

// Volatility returns the annualized standard deviation of daily returns, as
// a percentage.
func Volatility(valuation *models.Series) (float64, error) {
	returns := dailyReturns(valuation)
	if len(returns) < 2 {
		return 0, models.ErrNotComputable
	}
	_, std := meanStd(returns)
	return std * math.Sqrt(tradingDaysPerYear) * 100, nil
}

// MaxDrawdown finds the deepest peak-to-trough decline of the valuation.
func MaxDrawdown(valuation *models.Series) (*models.Drawdown, error) {
	var peak, worst float64
	var peakDay, worstPeak, worstTrough time.Time
	found := false

	valuation.Each(func(day time.Time, v float64) {
		if v <= 0 {
			return
		}
		if v > peak {
			peak = v
			peakDay = day
		}
		if peak > 0 {
			dd := (v - peak) / peak * 100
			if dd < worst {
				worst = dd
				worstPeak = peakDay
				worstTrough = day
				found = true
			}
		}
	})

	if !found {
		return nil, models.ErrNotComputable
	}
	return &models.Drawdown{Pct: worst, Peak: worstPeak, Trough: worstTrough}, nil
}

func meanStd(values []float64) (mean, std float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values) - 1)
	return mean, math.Sqrt(variance)
}

func firstPositiveDay(s *models.Series) time.Time {
	var first time.Time
	s.Each(func(day time.Time, v float64) {
		if first.IsZero() && v > 0 {
			first = day
		}
	})
	return first
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// clampDay keeps month boundaries inside the series range so the first and
// last partial months use their actual first/last observed days.
func clampDay(s *models.Series, t time.Time) time.Time {
	if t.Before(s.Start()) {
		return s.Start()
	}
	if t.After(s.End()) {
		return s.End()
	}
	return t
}
