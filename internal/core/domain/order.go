package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderType ...
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// IsValid ...
func (t OrderType) IsValid() bool {
	return t == OrderTypeLimit || t == OrderTypeMarket
}

// CreateOrderRequest is the payload of a hub-initiated order creation.
type CreateOrderRequest struct {
	ID       string          `json:"id"`
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"side"`
	Type     OrderType       `json:"ordType"`
	Amount   decimal.Decimal `json:"amount"`
	Price    decimal.Decimal `json:"price"`
	Exchange string          `json:"exchange,omitempty"`
}

// Validate checks the request against the supported trading pairs.
func (r CreateOrderRequest) Validate(registry *AssetRegistry) error {
	if r.ID == "" {
		return ErrInvalidOrderID
	}
	if _, _, err := registry.PairToAssets(r.Symbol); err != nil {
		return err
	}
	if !r.Side.IsValid() {
		return fmt.Errorf("%w: got %q", ErrInvalidSide, r.Side)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: got %q", ErrInvalidOrderType, r.Type)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidAmount)
	}
	if r.Type == OrderTypeLimit && !r.Price.IsPositive() {
		return fmt.Errorf("%w: limit orders require a price", ErrInvalidAmount)
	}
	return nil
}

// CancelOrderRequest is the payload of a hub-initiated order cancellation.
type CancelOrderRequest struct {
	ID string `json:"id"`
}

// Validate ...
func (r CancelOrderRequest) Validate() error {
	if r.ID == "" {
		return ErrInvalidOrderID
	}
	return nil
}

// Order is the order record returned to the hub by the order manager.
type Order struct {
	ID       string          `json:"id"`
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"side"`
	Type     OrderType       `json:"ordType"`
	Amount   decimal.Decimal `json:"amount"`
	Price    decimal.Decimal `json:"price"`
	Filled   decimal.Decimal `json:"filledAmount"`
	Exchange string          `json:"exchange,omitempty"`
	Status   string          `json:"status"`
	// Timestamp in milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// BrokerRegistration is sent to the hub once per connection lifecycle.
type BrokerRegistration struct {
	Address     string `json:"address"`
	PublicKey   string `json:"publicKey"`
	CallbackURL string `json:"callbackUrl"`
}

// BalanceSnapshot maps exchange -> asset symbol -> available amount.
type BalanceSnapshot map[string]map[string]decimal.Decimal

// Validate ...
func (b BalanceSnapshot) Validate() error {
	for exchange, balances := range b {
		for asset, amount := range balances {
			if amount.IsNegative() {
				return fmt.Errorf("%w: %s %s on %s", ErrInvalidBalance, amount, asset, exchange)
			}
		}
	}
	return nil
}
