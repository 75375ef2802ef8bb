package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Side is the side of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// IsValid returns whether the side is either buy or sell.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// Counter returns the opposite side.
func (s Side) Counter() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Trade is a fill produced by the matching engine.
type Trade struct {
	Amount decimal.Decimal
	Price  decimal.Decimal
	// Timestamp in milliseconds.
	Timestamp int64
}

func (t Trade) validate() error {
	if t.Amount.IsNegative() {
		return fmt.Errorf("%w: negative trade amount %s", ErrInvalidAmount, t.Amount)
	}
	if t.Price.IsNegative() {
		return fmt.Errorf("%w: negative trade price %s", ErrInvalidAmount, t.Price)
	}
	if t.Timestamp < 0 {
		return fmt.Errorf("%w: negative trade timestamp %d", ErrInvalidAmount, t.Timestamp)
	}
	return nil
}

// SubOrder is the part of an order routed to a single venue, as seen by the
// settlement process.
type SubOrder struct {
	// Symbol is the BASE-QUOTE trading pair.
	Symbol string
	Side   Side
}
