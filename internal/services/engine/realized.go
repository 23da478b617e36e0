package engine

import (
	"time"

	"github.com/mcheron/trackfolio/internal/models"
)

// buildRealized turns sell events into the cumulative plus-value series:
// the running total of profit and loss already banked by sells, held flat
// between sell dates. Crystallized losses push the series negative; they are
// money genuinely gone, not something to floor away.
func buildRealized(sells []sellEvent, start, end time.Time) *models.Series {
	realized := models.NewSeries(start, end)
	for _, s := range sells {
		realized.AddFrom(s.date, s.delta)
	}
	return realized
}
