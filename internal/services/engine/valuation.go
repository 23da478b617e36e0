package engine

import (
	"time"

	"github.com/mcheron/trackfolio/internal/models"
)

// computeValuation derives the daily valuation, unrealized gain and
// performance percentage from the cost-basis series and the price series.
//
// Quantity is reconstructed as invested/pru so the three series can never
// disagree about how many units back the valuation. The price series arrives
// already gap-filled from the provider; nothing here guesses prices.
func computeValuation(invested, pru, prices *models.Series) (valuation, gain, pct *models.Series) {
	valuation = models.NewSeries(invested.Start(), invested.End())
	gain = models.NewSeries(invested.Start(), invested.End())
	pct = models.NewSeries(invested.Start(), invested.End())

	invested.Each(func(day time.Time, inv float64) {
		p := pru.At(day)
		var quantity float64
		if p > 0 {
			quantity = inv / p
		}

		v := quantity * prices.At(day)
		valuation.Set(day, v)
		gain.Set(day, v-inv)
		if inv > 0 {
			// A fully-exited position reads 0%, not undefined.
			pct.Set(day, (v-inv)/inv*100)
		}
	})

	return valuation, gain, pct
}
