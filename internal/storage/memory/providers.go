// Package memory provides in-memory implementations of the provider and
// storage contracts, used by tests and by the file-backed data loader.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mcheron/trackfolio/internal/models"
)

// TransactionSource is an in-memory interfaces.TransactionSource.
type TransactionSource struct {
	mu  sync.RWMutex
	txs map[string][]models.Transaction // keyed by currency
}

// NewTransactionSource creates an empty source.
func NewTransactionSource() *TransactionSource {
	return &TransactionSource{txs: make(map[string][]models.Transaction)}
}

// Add appends transactions, bucketing them by currency.
func (s *TransactionSource) Add(txs ...models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		s.txs[tx.Currency] = append(s.txs[tx.Currency], tx)
	}
}

func (s *TransactionSource) Currencies(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	currencies := make([]string, 0, len(s.txs))
	for c := range s.txs {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	return currencies, nil
}

func (s *TransactionSource) Transactions(ctx context.Context, currency string) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Transaction, len(s.txs[currency]))
	copy(out, s.txs[currency])
	return out, nil
}

// PriceProvider is an in-memory interfaces.PriceProvider.
type PriceProvider struct {
	mu     sync.RWMutex
	series map[string]*models.Series
}

// NewPriceProvider creates an empty provider.
func NewPriceProvider() *PriceProvider {
	return &PriceProvider{series: make(map[string]*models.Series)}
}

// SetCloses installs a ticker's daily close series.
func (p *PriceProvider) SetCloses(ticker string, series *models.Series) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series[ticker] = series
}

func (p *PriceProvider) DailyCloses(ctx context.Context, ticker string) (*models.Series, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.series[ticker]
	if !ok {
		return nil, fmt.Errorf("no prices for ticker %s", ticker)
	}
	return s, nil
}

// FXProvider is an in-memory interfaces.FXProvider.
type FXProvider struct {
	mu    sync.RWMutex
	rates map[string]*models.Series // keyed "BASE/QUOTE"
}

// NewFXProvider creates an empty provider.
func NewFXProvider() *FXProvider {
	return &FXProvider{rates: make(map[string]*models.Series)}
}

// SetRate installs the daily rate series for a pair: quote units per one
// base unit.
func (p *FXProvider) SetRate(base, quote string, series *models.Series) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rates[base+"/"+quote] = series
}

func (p *FXProvider) Rate(ctx context.Context, base, quote string) (*models.Series, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.rates[base+"/"+quote]
	if !ok {
		return nil, &models.MissingRateError{Base: base, Quote: quote}
	}
	return s, nil
}
