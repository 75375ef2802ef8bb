package ports

import (
	"context"

	"github.com/spintrade/orion-broker/internal/core/domain"
)

// HubState is the registration state of the connection with the hub.
type HubState int32

const (
	HubDisconnected HubState = iota
	HubRegistering
	HubRegistered
)

func (s HubState) String() string {
	switch s {
	case HubRegistering:
		return "REGISTERING"
	case HubRegistered:
		return "REGISTERED"
	default:
		return "DISCONNECTED"
	}
}

// Logged is the outcome of a best-effort call to the hub. Failures are
// already logged by the callee and are returned for inspection only: callers
// are not expected to handle them.
type Logged struct {
	Op     string
	Status string
	Err    error
}

// Failed ...
func (l Logged) Failed() bool {
	return l.Err != nil
}

// Hub is the client side of the broker <-> hub protocol.
type Hub interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	State() HubState
	// Register performs the registration handshake. Both a fresh registration
	// and an already connected broker are successful outcomes.
	Register(ctx context.Context, registration domain.BrokerRegistration) Logged
	// SendBalances pushes a balance snapshot, fire-and-forget.
	SendBalances(ctx context.Context, snapshot domain.BalanceSnapshot) Logged
	// SendTrade relays a signed settlement message. On success the ack is also
	// forwarded to the order status handler; on failure the error is returned
	// since the trade is left unsettled.
	SendTrade(
		ctx context.Context, orderID string, msg domain.SettlementMessage,
	) (*domain.SettlementAck, error)
	// OnOrderStatusResponse sets the handler invoked with every trade ack.
	OnOrderStatusResponse(handler OrderStatusHandler)
}

// OrderStatusHandler receives the hub acks of relayed settlement messages.
// Acks may arrive in any order and must be correlated by message id.
type OrderStatusHandler interface {
	OnOrderStatus(ctx context.Context, ack domain.SettlementAck) error
}

// OrderStatusHandlerFunc adapts a function to OrderStatusHandler.
type OrderStatusHandlerFunc func(ctx context.Context, ack domain.SettlementAck) error

// OnOrderStatus ...
func (f OrderStatusHandlerFunc) OnOrderStatus(
	ctx context.Context, ack domain.SettlementAck,
) error {
	return f(ctx, ack)
}

// OrderManager handles the orders created and canceled by the hub. It is
// implemented by the order management layer on top of exchange connectors.
type OrderManager interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error)
	CancelOrder(ctx context.Context, req domain.CancelOrderRequest) (*domain.Order, error)
}

// BalanceSource provides the balance snapshots pushed to the hub.
type BalanceSource interface {
	GetBalances(ctx context.Context) (domain.BalanceSnapshot, error)
}
