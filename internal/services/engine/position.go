package engine

import (
	"time"

	"github.com/mcheron/trackfolio/internal/models"
)

// quantityEpsilon absorbs float drift when a position is sold down to
// exactly zero through fractional fills.
const quantityEpsilon = 1e-9

// CostBasisStrategy decides how buys and sells move a position's cost basis.
// The rest of the pipeline only sees Position states and removed cost, so a
// lot-tracking method (FIFO, LIFO) can be substituted without touching it.
type CostBasisStrategy interface {
	Name() string

	// Buy applies a buy transaction to the position.
	Buy(pos models.Position, tx models.Transaction) models.Position

	// Sell applies a sell transaction, returning the new position and the
	// cost removed from the basis. The caller guarantees
	// tx.Quantity <= pos.Quantity.
	Sell(pos models.Position, tx models.Transaction) (models.Position, float64)
}

// AverageCostBasis is the weighted-average cost method: every buy re-averages
// the cost per unit, every sell removes cost at the current average and
// leaves the average untouched.
type AverageCostBasis struct{}

func (AverageCostBasis) Name() string { return "average-cost" }

func (AverageCostBasis) Buy(pos models.Position, tx models.Transaction) models.Position {
	pos.Quantity += tx.Quantity
	pos.Invested += tx.Amount + tx.Fees
	pos.PRU = pos.Invested / pos.Quantity
	return pos
}

func (AverageCostBasis) Sell(pos models.Position, tx models.Transaction) (models.Position, float64) {
	// Cost leaves the basis at the existing average, never at the sale
	// price; the spread between the two is realized gain, tracked elsewhere.
	removed := tx.Quantity * pos.PRU
	pos.Invested -= removed
	pos.Quantity -= tx.Quantity
	if pos.Quantity <= quantityEpsilon {
		// Position closed: no units, no cost basis. A later re-buy starts
		// a fresh average.
		pos = models.Position{}
	}
	return pos, removed
}

// sellEvent is one crystallization point handed to the realized-gain
// tracker: the net proceeds of a sell minus the cost removed from the basis.
type sellEvent struct {
	date  time.Time
	delta float64
}

// replayPositions walks a ticker's buys and sells in date order and
// produces the invested-amount and PRU daily series (step functions over
// [start, end]) plus the sell events for the realized-gain tracker.
//
// Returns a NegativePositionError if any sell exceeds the quantity held at
// that point; no partial series is returned in that case.
func replayPositions(strategy CostBasisStrategy, ticker string, txs []models.Transaction, start, end time.Time) (invested, pru *models.Series, sells []sellEvent, err error) {
	invested = models.NewSeries(start, end)
	pru = models.NewSeries(start, end)

	var pos models.Position
	for _, tx := range txs {
		switch tx.Operation {
		case models.OpBuy:
			pos = strategy.Buy(pos, tx)

		case models.OpSell:
			if tx.Quantity > pos.Quantity+quantityEpsilon {
				return nil, nil, nil, &models.NegativePositionError{
					Ticker: ticker,
					Date:   tx.Date,
					Held:   pos.Quantity,
					Sold:   tx.Quantity,
				}
			}
			var removed float64
			pos, removed = strategy.Sell(pos, tx)
			sells = append(sells, sellEvent{
				date:  models.Day(tx.Date),
				delta: (tx.Amount - tx.Fees) - removed,
			})

		default:
			continue
		}

		invested.SetFrom(tx.Date, pos.Invested)
		pru.SetFrom(tx.Date, pos.PRU)
	}

	return invested, pru, sells, nil
}
