package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcheron/trackfolio/internal/common"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "transactions.json"), `[
		{"ticker": "AAPL", "currency": "USD", "operation": "buy",
		 "date": "2024-01-02T00:00:00Z", "amount": 1000, "fees": 1,
		 "stock_price": 100, "quantity": 10},
		{"currency": "EUR", "operation": "deposit",
		 "date": "2024-01-01T00:00:00Z", "amount": 2000}
	]`)
	writeFile(t, filepath.Join(dir, "prices", "AAPL.json"), `[
		{"date": "2024-01-02T00:00:00Z", "value": 100},
		{"date": "2024-01-05T00:00:00Z", "value": 104}
	]`)
	writeFile(t, filepath.Join(dir, "fxrates", "EUR_USD.json"), `[
		{"date": "2024-01-02T00:00:00Z", "value": 1.10}
	]`)

	ds, err := Load(common.NewSilentLogger(), dir)
	require.NoError(t, err)

	ctx := context.Background()
	currencies, err := ds.Transactions.Currencies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"EUR", "USD"}, currencies)

	prices, err := ds.Prices.DailyCloses(ctx, "AAPL")
	require.NoError(t, err)
	d := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
	assert.Equal(t, 100.0, prices.At(d(2)))
	assert.Equal(t, 100.0, prices.At(d(4)), "gap carried forward")
	assert.Equal(t, 104.0, prices.At(d(5)))

	rate, err := ds.Rates.Rate(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.10, rate.At(d(2)))
}

func TestLoad_MissingTransactions(t *testing.T) {
	_, err := Load(common.NewSilentLogger(), t.TempDir())
	assert.Error(t, err)
}

func TestLoad_MissingRateDirIsFine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "transactions.json"), `[]`)

	ds, err := Load(common.NewSilentLogger(), dir)
	require.NoError(t, err)

	currencies, err := ds.Transactions.Currencies(context.Background())
	require.NoError(t, err)
	assert.Empty(t, currencies)
}
