// Package fxrate converts absolute-value series between currencies using
// daily exchange rates.
package fxrate

import (
	"context"
	"fmt"
	"time"

	"github.com/Rhymond/go-money"

	"github.com/mcheron/trackfolio/internal/common"
	"github.com/mcheron/trackfolio/internal/interfaces"
	"github.com/mcheron/trackfolio/internal/models"
)

// Service implements interfaces.CurrencyNormalizer.
type Service struct {
	rates  interfaces.FXProvider
	logger *common.Logger
}

// NewService creates a currency normalizer.
func NewService(rates interfaces.FXProvider, logger *common.Logger) *Service {
	return &Service{rates: rates, logger: logger}
}

// Convert returns the series expressed in the target currency, multiplying
// each day's value by that day's rate. Rates follow the same carry-forward
// discipline as prices; the provider hands them over already gap-filled.
//
// Only absolute-value series belong here. Percentage series are ratios and
// must never be converted; the caller keeps them as-is.
//
// When no direct rate exists for (from, to), the inverse pair is tried and
// divided by. A models.MissingRateError propagates if neither direction has
// data, and equally when the rate history starts after the series does: the
// leading days have no rate at all, and converting them at an implied zero
// would corrupt every total the series is summed into.
func (s *Service) Convert(ctx context.Context, series *models.Series, from, to string) (*models.Series, error) {
	if from == to {
		return series.Clone(), nil
	}
	if money.GetCurrency(from) == nil {
		return nil, fmt.Errorf("unknown currency code %q", from)
	}
	if money.GetCurrency(to) == nil {
		return nil, fmt.Errorf("unknown currency code %q", to)
	}

	rate, err := s.rates.Rate(ctx, from, to)
	if err == nil {
		if series.Start().Before(rate.Start()) {
			return nil, &models.MissingRateError{Base: from, Quote: to}
		}
		return series.Map(func(day time.Time, v float64) float64 {
			return v * rate.At(day)
		}), nil
	}

	inverse, invErr := s.rates.Rate(ctx, to, from)
	if invErr != nil {
		return nil, &models.MissingRateError{Base: from, Quote: to}
	}
	if series.Start().Before(inverse.Start()) {
		return nil, &models.MissingRateError{Base: from, Quote: to}
	}

	return series.Map(func(day time.Time, v float64) float64 {
		return v / inverse.At(day)
	}), nil
}

// ConvertAmount converts a single amount using the rate on one day. Used for
// transaction-level conversions where a full series is overkill.
func (s *Service) ConvertAmount(ctx context.Context, amount float64, day time.Time, from, to string) (float64, error) {
	if from == to {
		return amount, nil
	}

	rate, err := s.rates.Rate(ctx, from, to)
	if err == nil {
		r := rate.At(day)
		if r == 0 {
			// Zero means the day precedes the rate history, not a free
			// currency.
			return 0, &models.MissingRateError{Base: from, Quote: to}
		}
		return amount * r, nil
	}

	inverse, invErr := s.rates.Rate(ctx, to, from)
	if invErr != nil {
		return 0, &models.MissingRateError{Base: from, Quote: to}
	}
	r := inverse.At(day)
	if r == 0 {
		return 0, &models.MissingRateError{Base: from, Quote: to}
	}
	return amount / r, nil
}
