// Package file loads the materialized input dataset from disk and exposes
// it through the in-memory providers. The expected layout under the data
// path is:
//
//	transactions.json        []models.Transaction
//	prices/<TICKER>.json     []models.SeriesPoint (daily closes)
//	fxrates/<BASE>_<QUOTE>.json []models.SeriesPoint (quote units per base)
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcheron/trackfolio/internal/common"
	"github.com/mcheron/trackfolio/internal/models"
	"github.com/mcheron/trackfolio/internal/storage/memory"
)

// Dataset bundles the three providers hydrated from one data directory.
type Dataset struct {
	Transactions *memory.TransactionSource
	Prices       *memory.PriceProvider
	Rates        *memory.FXProvider
}

// Load reads the full dataset from path. Price and rate files are series of
// sparse observations; gaps are carried forward and the leading gap is
// backfilled, matching what a live market feed would deliver.
func Load(logger *common.Logger, path string) (*Dataset, error) {
	ds := &Dataset{
		Transactions: memory.NewTransactionSource(),
		Prices:       memory.NewPriceProvider(),
		Rates:        memory.NewFXProvider(),
	}

	var txs []models.Transaction
	if err := readJSON(filepath.Join(path, "transactions.json"), &txs); err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	ds.Transactions.Add(txs...)

	priceCount, err := loadSeriesDir(filepath.Join(path, "prices"), func(name string, s *models.Series) {
		ds.Prices.SetCloses(name, s)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}

	rateCount, err := loadSeriesDir(filepath.Join(path, "fxrates"), func(name string, s *models.Series) {
		base, quote, ok := strings.Cut(name, "_")
		if ok {
			ds.Rates.SetRate(base, quote, s)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load fx rates: %w", err)
	}

	logger.Info().
		Str("path", path).
		Int("transactions", len(txs)).
		Int("price_series", priceCount).
		Int("rate_series", rateCount).
		Msg("Dataset loaded")

	return ds, nil
}

// loadSeriesDir reads every *.json file in dir as sparse points and installs
// the carried-forward daily series under the file's base name. A missing
// directory is not an error: the dataset may legitimately have no FX pairs.
func loadSeriesDir(dir string, install func(name string, s *models.Series)) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		var points []models.SeriesPoint
		if err := readJSON(filepath.Join(dir, entry.Name()), &points); err != nil {
			return 0, err
		}
		if len(points) == 0 {
			continue
		}

		start, end := pointRange(points)
		series := models.NewSeriesFromPoints(points, start, end, models.GapFillCarry)
		install(strings.TrimSuffix(entry.Name(), ".json"), series)
		count++
	}
	return count, nil
}

func pointRange(points []models.SeriesPoint) (start, end time.Time) {
	start = points[0].Date
	end = points[0].Date
	for _, p := range points[1:] {
		if p.Date.Before(start) {
			start = p.Date
		}
		if p.Date.After(end) {
			end = p.Date
		}
	}
	return start, end
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}
