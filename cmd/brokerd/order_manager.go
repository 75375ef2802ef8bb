package main

import (
	"context"
	"errors"

	"github.com/spintrade/orion-broker/internal/core/domain"
)

var errNoExchangeConnectors = errors.New(
	"no exchange connector configured, order management unavailable",
)

// unavailableOrderManager rejects every hub-initiated order until an order
// management layer is plugged in. Rejections reach the hub as error
// envelopes.
type unavailableOrderManager struct{}

func (unavailableOrderManager) CreateOrder(
	context.Context, domain.CreateOrderRequest,
) (*domain.Order, error) {
	return nil, errNoExchangeConnectors
}

func (unavailableOrderManager) CancelOrder(
	context.Context, domain.CancelOrderRequest,
) (*domain.Order, error) {
	return nil, errNoExchangeConnectors
}
