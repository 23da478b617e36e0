package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcheron/trackfolio/internal/common"
	"github.com/mcheron/trackfolio/internal/models"
	"github.com/mcheron/trackfolio/internal/storage/memory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func buy(ticker string, d time.Time, amount, fees, price, qty float64) models.Transaction {
	return models.Transaction{
		Ticker: ticker, Currency: "EUR", Operation: models.OpBuy,
		Date: d, Amount: amount, Fees: fees, StockPrice: price, Quantity: qty,
	}
}

func sell(ticker string, d time.Time, amount, fees, price, qty float64) models.Transaction {
	return models.Transaction{
		Ticker: ticker, Currency: "EUR", Operation: models.OpSell,
		Date: d, Amount: amount, Fees: fees, StockPrice: price, Quantity: qty,
	}
}

func constantPrices(start, end time.Time, value float64) *models.Series {
	s := models.NewSeries(start, end)
	s.SetFrom(start, value)
	return s
}

func TestAverageCostBasis_BuySequence(t *testing.T) {
	var pos models.Position
	strategy := AverageCostBasis{}

	pos = strategy.Buy(pos, buy("AAPL", day(2024, 1, 1), 1000, 1, 100, 10))
	assert.InDelta(t, 1001, pos.Invested, 1e-9)
	assert.InDelta(t, 100.1, pos.PRU, 1e-9)

	pos = strategy.Buy(pos, buy("AAPL", day(2024, 1, 2), 1200, 1, 120, 10))
	assert.InDelta(t, 2202, pos.Invested, 1e-9)
	assert.InDelta(t, 110.1, pos.PRU, 1e-9)
	assert.InDelta(t, 20, pos.Quantity, 1e-9)
}

func TestAverageCostBasis_SellKeepsAverage(t *testing.T) {
	strategy := AverageCostBasis{}
	pos := models.Position{Quantity: 20, PRU: 110.1, Invested: 2202}

	pos, removed := strategy.Sell(pos, sell("AAPL", day(2024, 1, 3), 750, 1, 150, 5))
	assert.InDelta(t, 550.5, removed, 1e-9, "cost leaves at the average, not the sale price")
	assert.InDelta(t, 1651.5, pos.Invested, 1e-9)
	assert.InDelta(t, 110.1, pos.PRU, 1e-9, "selling never moves the average")
	assert.InDelta(t, 15, pos.Quantity, 1e-9)
}

func TestAverageCostBasis_FullExitResets(t *testing.T) {
	strategy := AverageCostBasis{}
	pos := models.Position{Quantity: 3, PRU: 50, Invested: 150}

	pos, _ = strategy.Sell(pos, sell("AAPL", day(2024, 1, 3), 180, 0, 60, 3))
	assert.True(t, pos.Flat())
	assert.Zero(t, pos.PRU, "a re-buy must start a fresh average")
	assert.Zero(t, pos.Invested)
}

func TestAverageCostBasis_FractionalExitWithinEpsilon(t *testing.T) {
	strategy := AverageCostBasis{}
	pos := models.Position{Quantity: 0.3, PRU: 100, Invested: 30}

	// Three 0.1 sells; float drift must still land on a flat position.
	for i := 0; i < 3; i++ {
		pos, _ = strategy.Sell(pos, sell("AAPL", day(2024, 1, 3+i), 10, 0, 100, 0.1))
	}
	assert.True(t, pos.Flat())
}

func TestReplayPositions_NegativePosition(t *testing.T) {
	txs := []models.Transaction{
		buy("AAPL", day(2024, 1, 1), 1500, 0, 100, 15),
		sell("AAPL", day(2024, 1, 2), 2500, 0, 100, 25),
	}

	_, _, _, err := replayPositions(AverageCostBasis{}, "AAPL", txs, day(2024, 1, 1), day(2024, 1, 5))
	var negErr *models.NegativePositionError
	require.ErrorAs(t, err, &negErr)
	assert.Equal(t, "AAPL", negErr.Ticker)
	assert.InDelta(t, 15, negErr.Held, 1e-9)
	assert.InDelta(t, 25, negErr.Sold, 1e-9)
}

func TestReplayPositions_StepSeries(t *testing.T) {
	txs := []models.Transaction{
		buy("AAPL", day(2024, 1, 1), 1000, 1, 100, 10),
		buy("AAPL", day(2024, 1, 3), 1200, 1, 120, 10),
	}

	invested, pru, sells, err := replayPositions(AverageCostBasis{}, "AAPL", txs, day(2024, 1, 1), day(2024, 1, 5))
	require.NoError(t, err)
	assert.Empty(t, sells)

	// Step function: day 2 still carries day 1's level.
	assert.InDelta(t, 1001, invested.At(day(2024, 1, 2)), 1e-9)
	assert.InDelta(t, 100.1, pru.At(day(2024, 1, 2)), 1e-9)
	assert.InDelta(t, 2202, invested.At(day(2024, 1, 5)), 1e-9)
	assert.InDelta(t, 110.1, pru.At(day(2024, 1, 5)), 1e-9)
}

func TestComputeTicker_FullPipeline(t *testing.T) {
	start, end := day(2024, 1, 1), day(2024, 1, 4)

	prices := memory.NewPriceProvider()
	prices.SetCloses("AAPL", constantPrices(start, end, 130))

	svc := NewService(prices, common.NewSilentLogger())

	txs := []models.Transaction{
		buy("AAPL", day(2024, 1, 1), 1000, 1, 100, 10),
		buy("AAPL", day(2024, 1, 2), 1200, 1, 120, 10),
		sell("AAPL", day(2024, 1, 3), 750, 1, 150, 5),
	}

	result, err := svc.ComputeTicker(context.Background(), "AAPL", "EUR", txs)
	require.NoError(t, err)

	d4 := day(2024, 1, 4)
	assert.InDelta(t, 1651.5, result.Invested.At(d4), 1e-9)
	assert.InDelta(t, 110.1, result.PRU.At(d4), 1e-9)
	assert.InDelta(t, 1950, result.Valuation.At(d4), 1e-6, "15 units at 130")
	assert.InDelta(t, 298.5, result.UnrealizedGain.At(d4), 1e-6)
	assert.InDelta(t, 298.5/1651.5*100, result.PerformancePct.At(d4), 1e-6)
	assert.InDelta(t, 198.5, result.Realized.At(d4), 1e-9, "(750-1) minus 550.5 removed cost")

	// Before the sell, nothing is realized.
	assert.Zero(t, result.Realized.At(day(2024, 1, 2)))
}

func TestComputeTicker_DividendsAndFees(t *testing.T) {
	start, end := day(2024, 1, 1), day(2024, 1, 5)

	prices := memory.NewPriceProvider()
	prices.SetCloses("TTE", constantPrices(start, end, 60))

	svc := NewService(prices, common.NewSilentLogger())

	txs := []models.Transaction{
		buy("TTE", day(2024, 1, 1), 600, 2, 60, 10),
		{Ticker: "TTE", Currency: "EUR", Operation: models.OpDividend, Date: day(2024, 1, 3), Amount: 50, Fees: 5},
	}

	result, err := svc.ComputeTicker(context.Background(), "TTE", "EUR", txs)
	require.NoError(t, err)

	assert.Zero(t, result.Dividends.At(day(2024, 1, 2)))
	assert.InDelta(t, 45, result.Dividends.At(day(2024, 1, 3)), 1e-9, "dividends are net of fees")
	assert.InDelta(t, 45, result.Dividends.Last(), 1e-9)
	assert.InDelta(t, 7, result.Fees.Last(), 1e-9, "buy fee plus dividend fee")
}

func TestComputeTicker_NoPriceHistory(t *testing.T) {
	svc := NewService(memory.NewPriceProvider(), common.NewSilentLogger())

	txs := []models.Transaction{buy("GHOST", day(2024, 1, 1), 100, 0, 10, 10)}
	_, err := svc.ComputeTicker(context.Background(), "GHOST", "EUR", txs)

	var integrity *models.IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "GHOST", integrity.Ticker)
}

func TestComputeTicker_IgnoresOtherTickers(t *testing.T) {
	start, end := day(2024, 1, 1), day(2024, 1, 3)

	prices := memory.NewPriceProvider()
	prices.SetCloses("AAPL", constantPrices(start, end, 100))

	svc := NewService(prices, common.NewSilentLogger())

	txs := []models.Transaction{
		buy("AAPL", day(2024, 1, 1), 1000, 0, 100, 10),
		buy("MSFT", day(2024, 1, 1), 5000, 0, 500, 10),
	}

	result, err := svc.ComputeTicker(context.Background(), "AAPL", "EUR", txs)
	require.NoError(t, err)
	assert.InDelta(t, 1000, result.Invested.Last(), 1e-9)
}

func TestCashSeries(t *testing.T) {
	svc := NewService(memory.NewPriceProvider(), common.NewSilentLogger())

	start, end := day(2024, 1, 1), day(2024, 1, 6)
	txs := []models.Transaction{
		{Currency: "EUR", Operation: models.OpDeposit, Date: day(2024, 1, 1), Amount: 2000},
		buy("AAPL", day(2024, 1, 2), 1000, 1, 100, 10),
		{Ticker: "AAPL", Currency: "EUR", Operation: models.OpDividend, Date: day(2024, 1, 4), Amount: 50, Fees: 5},
		sell("AAPL", day(2024, 1, 5), 550, 1, 110, 5),
	}

	cash := svc.CashSeries(txs, start, end)
	assert.InDelta(t, 2000, cash.At(day(2024, 1, 1)), 1e-9)
	assert.InDelta(t, 999, cash.At(day(2024, 1, 2)), 1e-9)
	assert.InDelta(t, 999, cash.At(day(2024, 1, 3)), 1e-9, "no drift on inactive days")
	assert.InDelta(t, 1044, cash.At(day(2024, 1, 4)), 1e-9)
	assert.InDelta(t, 1593, cash.At(day(2024, 1, 6)), 1e-9)
}

func TestCashSeries_DropsFlowsOutsideRange(t *testing.T) {
	svc := NewService(memory.NewPriceProvider(), common.NewSilentLogger())

	txs := []models.Transaction{
		{Currency: "EUR", Operation: models.OpDeposit, Date: day(2023, 12, 1), Amount: 5000},
		{Currency: "EUR", Operation: models.OpDeposit, Date: day(2024, 1, 2), Amount: 100},
	}
	cash := svc.CashSeries(txs, day(2024, 1, 1), day(2024, 1, 3))
	assert.InDelta(t, 0, cash.At(day(2024, 1, 1)), 1e-9)
	assert.InDelta(t, 100, cash.Last(), 1e-9, "only in-range flows count")
}

func TestCashSeries_AllowsNegativeBalance(t *testing.T) {
	svc := NewService(memory.NewPriceProvider(), common.NewSilentLogger())

	txs := []models.Transaction{
		buy("AAPL", day(2024, 1, 1), 1000, 0, 100, 10),
	}
	cash := svc.CashSeries(txs, day(2024, 1, 1), day(2024, 1, 2))
	assert.InDelta(t, -1000, cash.Last(), 1e-9, "overdraft is representable, not clamped")
}
