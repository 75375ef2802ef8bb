package settlement_test

import (
	"context"

	"github.com/spintrade/orion-broker/internal/core/domain"
	"github.com/spintrade/orion-broker/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// **** Hub ****

type mockHub struct {
	mock.Mock
}

func (m *mockHub) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockHub) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockHub) State() ports.HubState {
	args := m.Called()
	return args.Get(0).(ports.HubState)
}

func (m *mockHub) Register(
	ctx context.Context, registration domain.BrokerRegistration,
) ports.Logged {
	args := m.Called(ctx, registration)
	return args.Get(0).(ports.Logged)
}

func (m *mockHub) SendBalances(
	ctx context.Context, snapshot domain.BalanceSnapshot,
) ports.Logged {
	args := m.Called(ctx, snapshot)
	return args.Get(0).(ports.Logged)
}

func (m *mockHub) SendTrade(
	ctx context.Context, orderID string, msg domain.SettlementMessage,
) (*domain.SettlementAck, error) {
	args := m.Called(ctx, orderID, msg)

	var res *domain.SettlementAck
	switch a := args.Get(0).(type) {
	case func(context.Context, string, domain.SettlementMessage) *domain.SettlementAck:
		res = a(ctx, orderID, msg)
	case *domain.SettlementAck:
		res = a
	}
	return res, args.Error(1)
}

func (m *mockHub) OnOrderStatusResponse(handler ports.OrderStatusHandler) {
	m.Called(handler)
}

// **** Order status handler ****

type mockStatusHandler struct {
	mock.Mock
}

func (m *mockStatusHandler) OnOrderStatus(
	ctx context.Context, ack domain.SettlementAck,
) error {
	args := m.Called(ctx, ack)
	return args.Error(0)
}
