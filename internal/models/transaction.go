package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Operation categorizes a brokerage transaction.
type Operation string

const (
	OpBuy        Operation = "buy"
	OpSell       Operation = "sell"
	OpDividend   Operation = "dividend"
	OpInterest   Operation = "interest"
	OpDeposit    Operation = "deposit"
	OpWithdrawal Operation = "withdrawal"
)

// validOperations lists all accepted operation types.
var validOperations = map[Operation]bool{
	OpBuy:        true,
	OpSell:       true,
	OpDividend:   true,
	OpInterest:   true,
	OpDeposit:    true,
	OpWithdrawal: true,
}

// ValidOperation returns true if op is a recognized operation type.
func ValidOperation(op Operation) bool {
	return validOperations[op]
}

// IsCashOnly returns true for operations that carry no ticker
// (account-level cash movements).
func (op Operation) IsCashOnly() bool {
	switch op {
	case OpDeposit, OpWithdrawal, OpInterest:
		return true
	default:
		return false
	}
}

// Transaction is one entry of the append-only brokerage ledger.
// Amount is always a non-negative magnitude; the sign of its effect on cash
// is determined by the operation. StockPrice and Quantity are set for
// buy/sell only.
type Transaction struct {
	Ticker     string    `json:"ticker,omitempty"`
	Currency   string    `json:"currency"`
	Operation  Operation `json:"operation"`
	Date       time.Time `json:"date"`
	Amount     float64   `json:"amount"`
	Fees       float64   `json:"fees"`
	StockPrice float64   `json:"stock_price,omitempty"`
	Quantity   float64   `json:"quantity,omitempty"`
}

// Validate checks structural integrity of a single transaction.
func (t Transaction) Validate() error {
	if !ValidOperation(t.Operation) {
		return fmt.Errorf("unknown operation %q", t.Operation)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("transaction has no date")
	}
	if t.Amount < 0 {
		return fmt.Errorf("amount must be non-negative, got %v", t.Amount)
	}
	if t.Fees < 0 {
		return fmt.Errorf("fees must be non-negative, got %v", t.Fees)
	}
	switch t.Operation {
	case OpBuy, OpSell:
		if t.Ticker == "" {
			return fmt.Errorf("%s requires a ticker", t.Operation)
		}
		if t.Quantity <= 0 {
			return fmt.Errorf("%s requires quantity > 0, got %v", t.Operation, t.Quantity)
		}
		if t.StockPrice <= 0 {
			return fmt.Errorf("%s requires stock_price > 0, got %v", t.Operation, t.StockPrice)
		}
	case OpDividend:
		if t.Ticker == "" {
			return fmt.Errorf("dividend requires a ticker")
		}
	default:
		if t.Ticker != "" {
			return fmt.Errorf("%s must not reference a ticker", t.Operation)
		}
	}
	return nil
}

// CashFlow returns the signed effect of the transaction on the cash balance.
// Buys consume cash including fees, sells return proceeds net of fees,
// income operations add net amounts, withdrawals remove the full amount.
func (t Transaction) CashFlow() float64 {
	switch t.Operation {
	case OpBuy:
		return -(t.Amount + t.Fees)
	case OpSell:
		return t.Amount - t.Fees
	case OpDeposit, OpDividend, OpInterest:
		return t.Amount - t.Fees
	case OpWithdrawal:
		return -t.Amount
	}
	return 0
}

// Key identifies the aggregation bucket of a transaction: same ticker, same
// operation, same day. Entries sharing a key are merged before the engine
// sees them.
func (t Transaction) Key() string {
	return fmt.Sprintf("%s|%s|%s", t.Ticker, t.Operation, Day(t.Date).Format("2006-01-02"))
}

// MergeSameDay folds a group of transactions sharing the same Key into one
// entry. Sums run in exact decimal arithmetic so the result does not depend
// on the order of partial fills; the merged stock price is the
// amount-weighted average.
func MergeSameDay(group []Transaction) Transaction {
	if len(group) == 1 {
		return group[0]
	}

	merged := group[0]
	amount := decimal.Zero
	fees := decimal.Zero
	quantity := decimal.Zero
	for _, t := range group {
		amount = amount.Add(decimal.NewFromFloat(t.Amount))
		fees = fees.Add(decimal.NewFromFloat(t.Fees))
		quantity = quantity.Add(decimal.NewFromFloat(t.Quantity))
	}

	merged.Amount = amount.InexactFloat64()
	merged.Fees = fees.InexactFloat64()
	merged.Quantity = quantity.InexactFloat64()
	merged.Date = Day(merged.Date)
	if !quantity.IsZero() {
		merged.StockPrice = amount.Div(quantity).InexactFloat64()
	}
	return merged
}
