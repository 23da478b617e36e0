package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcheron/trackfolio/internal/models"
)

func rampSeries(start, end time.Time, from, to float64) *models.Series {
	s := models.NewSeries(start, end)
	days := s.Len()
	i := 0
	s.Each(func(d time.Time, _ float64) {
		frac := float64(i) / float64(days-1)
		s.Set(d, from+(to-from)*frac)
		i++
	})
	return s
}

func TestMonthlyReturns_NoSells(t *testing.T) {
	valuation := models.NewSeries(day(2024, 1, 1), day(2024, 2, 29))
	valuation.SetFrom(day(2024, 1, 1), 1000)
	valuation.SetFrom(day(2024, 1, 31), 1100)
	valuation.SetFrom(day(2024, 2, 29), 1210)

	txs := []models.Transaction{buy("AAPL", day(2024, 1, 1), 1000, 0, 100, 10)}

	returns := MonthlyReturns(valuation, txs)
	require.Len(t, returns, 2)

	assert.Equal(t, day(2024, 1, 31), returns[0].Month)
	assert.InDelta(t, 10, returns[0].Pct, 1e-9)
	assert.InDelta(t, 10, returns[1].Pct, 1e-9)
}

func TestMonthlyReturns_FlowAdjusted(t *testing.T) {
	// A mid-month buy doubles the valuation. Unadjusted that reads as a
	// +100% month; flow-adjusted it must read near zero.
	valuation := models.NewSeries(day(2024, 1, 1), day(2024, 2, 29))
	valuation.SetFrom(day(2024, 1, 1), 1000)
	valuation.SetFrom(day(2024, 2, 15), 2000)

	txs := []models.Transaction{
		buy("AAPL", day(2024, 1, 1), 1000, 0, 100, 10),
		buy("AAPL", day(2024, 2, 15), 1000, 0, 100, 10),
		sell("AAPL", day(2024, 2, 28), 0.01, 0, 100, 0.0001),
	}

	returns := MonthlyReturns(valuation, txs)
	require.Len(t, returns, 2)
	assert.InDelta(t, 0, returns[1].Pct, 0.1, "contribution must not read as performance")
}

func TestMonthlyReturns_FirstBuyIsBaseCapital(t *testing.T) {
	valuation := models.NewSeries(day(2024, 1, 1), day(2024, 1, 31))
	valuation.SetFrom(day(2024, 1, 1), 1000)
	valuation.SetFrom(day(2024, 1, 31), 1100)

	txs := []models.Transaction{
		buy("AAPL", day(2024, 1, 1), 1000, 0, 100, 10),
		sell("AAPL", day(2024, 1, 20), 0.01, 0, 100, 0.0001),
	}

	returns := MonthlyReturns(valuation, txs)
	require.Len(t, returns, 1)
	// Base is the starting valuation, not startVal plus the opening buy.
	assert.InDelta(t, 10, returns[0].Pct, 0.1)
}

func TestMonthlyReturns_EmptySeries(t *testing.T) {
	assert.Nil(t, MonthlyReturns(nil, nil))
}

func TestCAGR_WholePeriod(t *testing.T) {
	// 1000 invested grows to 1210 over exactly two years: ~10% annualized.
	start := day(2022, 1, 1)
	end := start.AddDate(0, 0, 730)

	invested := models.NewSeries(start, end)
	invested.SetFrom(start, 1000)

	valuation := models.NewSeries(start, end)
	valuation.SetFrom(start, 1000)
	valuation.SetFrom(end, 1210)

	result := CAGR(valuation, invested)
	require.NotNil(t, result.Whole)
	assert.InDelta(t, 10, *result.Whole, 0.2)

	// Two years of history: 1y and 2y horizons computable, 5y not.
	require.NotNil(t, result.ByYears[1])
	require.NotNil(t, result.ByYears[2])
	assert.Nil(t, result.ByYears[5])
	assert.Nil(t, result.ByYears[10])
}

func TestCAGR_NotEnoughHistory(t *testing.T) {
	start, end := day(2024, 1, 1), day(2024, 3, 1)
	invested := models.NewSeries(start, end)
	invested.SetFrom(start, 1000)
	valuation := invested.Clone()

	result := CAGR(valuation, invested)
	assert.Nil(t, result.ByYears[1])
	require.NotNil(t, result.Whole)
}

func TestCAGR_ZeroCapital(t *testing.T) {
	start, end := day(2024, 1, 1), day(2024, 12, 31)
	invested := models.NewSeries(start, end)
	valuation := models.NewSeries(start, end)

	result := CAGR(valuation, invested)
	assert.Nil(t, result.Whole, "no capital ever deployed")
}

func TestAnnualizedGrowth_DegenerateInputs(t *testing.T) {
	_, err := annualizedGrowth(1100, 0, 365)
	assert.ErrorIs(t, err, models.ErrNotComputable)

	_, err = annualizedGrowth(1100, 1000, 0)
	assert.ErrorIs(t, err, models.ErrNotComputable)

	_, err = annualizedGrowth(-50, 1000, 365)
	assert.ErrorIs(t, err, models.ErrNotComputable)

	rate, err := annualizedGrowth(1100, 1000, 365)
	require.NoError(t, err)
	assert.InDelta(t, 10, rate, 1e-6)
	assert.False(t, math.IsNaN(rate))
}

func TestSharpeRatio(t *testing.T) {
	valuation := rampSeries(day(2024, 1, 1), day(2024, 6, 30), 1000, 1400)

	sharpe, err := SharpeRatio(valuation, 0.025)
	require.NoError(t, err)
	assert.Greater(t, sharpe, 0.0, "steady growth above the risk-free rate")
}

func TestSharpeRatio_TooFewReturns(t *testing.T) {
	valuation := models.NewSeries(day(2024, 1, 1), day(2024, 1, 2))
	valuation.SetFrom(day(2024, 1, 1), 100)

	_, err := SharpeRatio(valuation, 0.025)
	assert.ErrorIs(t, err, models.ErrNotComputable)
}

func TestSortinoRatio_NoDownside(t *testing.T) {
	valuation := rampSeries(day(2024, 1, 1), day(2024, 3, 31), 1000, 1200)

	// Strictly rising series has no downside deviation to divide by.
	_, err := SortinoRatio(valuation, 0.0)
	assert.ErrorIs(t, err, models.ErrNotComputable)
}

func TestVolatility_ConstantSeries(t *testing.T) {
	valuation := models.NewSeries(day(2024, 1, 1), day(2024, 3, 31))
	valuation.SetFrom(day(2024, 1, 1), 1000)

	vol, err := Volatility(valuation)
	require.NoError(t, err)
	assert.InDelta(t, 0, vol, 1e-9)
}

func TestMaxDrawdown(t *testing.T) {
	valuation := models.NewSeries(day(2024, 1, 1), day(2024, 1, 10))
	valuation.SetFrom(day(2024, 1, 1), 100)
	valuation.SetFrom(day(2024, 1, 3), 200)
	valuation.SetFrom(day(2024, 1, 6), 120)
	valuation.SetFrom(day(2024, 1, 9), 180)

	dd, err := MaxDrawdown(valuation)
	require.NoError(t, err)
	assert.InDelta(t, -40, dd.Pct, 1e-9)
	assert.Equal(t, day(2024, 1, 3), dd.Peak)
	assert.Equal(t, day(2024, 1, 6), dd.Trough)
}

func TestMaxDrawdown_MonotoneRise(t *testing.T) {
	valuation := rampSeries(day(2024, 1, 1), day(2024, 1, 10), 100, 200)
	_, err := MaxDrawdown(valuation)
	assert.ErrorIs(t, err, models.ErrNotComputable)
}
