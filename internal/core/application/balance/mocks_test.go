package balance_test

import (
	"context"

	"github.com/spintrade/orion-broker/internal/core/domain"
	"github.com/spintrade/orion-broker/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

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
	if a := args.Get(0); a != nil {
		res = a.(*domain.SettlementAck)
	}
	return res, args.Error(1)
}

func (m *mockHub) OnOrderStatusResponse(handler ports.OrderStatusHandler) {
	m.Called(handler)
}

type mockBalanceSource struct {
	mock.Mock
}

func (m *mockBalanceSource) GetBalances(
	ctx context.Context,
) (domain.BalanceSnapshot, error) {
	args := m.Called(ctx)

	var res domain.BalanceSnapshot
	if a := args.Get(0); a != nil {
		res = a.(domain.BalanceSnapshot)
	}
	return res, args.Error(1)
}
