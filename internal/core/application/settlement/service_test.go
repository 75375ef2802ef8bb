package settlement_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spintrade/orion-broker/internal/core/application/settlement"
	"github.com/spintrade/orion-broker/internal/core/domain"
	"github.com/spintrade/orion-broker/internal/core/ports"
	eip712signer "github.com/spintrade/orion-broker/internal/infrastructure/signer/eip712"
	"github.com/spintrade/orion-broker/internal/infrastructure/storage/db/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	privateKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	brokerAddress  = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	matcherAddress = "0x2222222222222222222222222222222222222222"
	ethAsset       = "0x0000000000000000000000000000000000000000"
	usdtAsset      = "0xfc1cd13a7f126efd823e373c4086f69beb8611c2"
	orderID        = "order-1"
	timestamp      = int64(1600000000000)
)

var (
	ackPayload = []byte(`{"status":"ok"}`)
	hubErr     = errors.New("hub unreachable")
)

type testEnv struct {
	svc     *settlement.Service
	hub     *mockHub
	handler *mockStatusHandler
}

func newTestEnv(t *testing.T) testEnv {
	registry, err := domain.NewAssetRegistry(map[string]string{
		"ETH":  ethAsset,
		"USDT": usdtAsset,
	})
	require.NoError(t, err)
	signer, err := eip712signer.NewSigner(privateKey)
	require.NoError(t, err)

	hub := &mockHub{}
	hub.On("OnOrderStatusResponse", mock.Anything).Return()

	svc, err := settlement.NewService(
		registry, signer, matcherAddress, hub, inmemory.NewRepoManager(),
	)
	require.NoError(t, err)

	handler := &mockStatusHandler{}
	svc.SetStatusHandler(handler)

	return testEnv{svc, hub, handler}
}

// mockSuccessfulRelay makes the hub ack every relayed message the way the
// hub client does, ie. by dispatching the ack to the registered handler.
func (e testEnv) mockSuccessfulRelay() {
	e.hub.On("SendTrade", mock.Anything, mock.Anything, mock.Anything).
		Return(func(ctx context.Context, orderID string, msg domain.SettlementMessage) *domain.SettlementAck {
			ack := domain.SettlementAck{MessageID: msg.ID, OrderID: orderID, Payload: ackPayload}
			//nolint
			e.svc.OnOrderStatus(ctx, ack)
			return &ack
		}, nil)
}

func newTrade(ts int64) domain.Trade {
	return domain.Trade{
		Amount:    decimal.NewFromInt(10),
		Price:     decimal.NewFromInt(2),
		Timestamp: ts,
	}
}

func TestFailingNewService(t *testing.T) {
	registry, err := domain.NewAssetRegistry(map[string]string{"ETH": ethAsset})
	require.NoError(t, err)
	signer, err := eip712signer.NewSigner(privateKey)
	require.NoError(t, err)
	hub := &mockHub{}
	repoManager := inmemory.NewRepoManager()

	tests := []struct {
		name        string
		registry    *domain.AssetRegistry
		signer      ports.Signer
		matcher     string
		hub         ports.Hub
		repoManager ports.RepoManager
		expectedErr error
	}{
		{"missing_registry", nil, signer, matcherAddress, hub, repoManager, settlement.ErrMissingRegistry},
		{"missing_signer", registry, nil, matcherAddress, hub, repoManager, settlement.ErrMissingSigner},
		{"missing_hub", registry, signer, matcherAddress, nil, repoManager, settlement.ErrMissingHub},
		{"missing_repo_manager", registry, signer, matcherAddress, hub, nil, settlement.ErrMissingRepoManager},
		{"invalid_matcher", registry, signer, "0x1234", hub, repoManager, domain.ErrInvalidMatcherAddress},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc, err := settlement.NewService(
				tt.registry, tt.signer, tt.matcher, tt.hub, tt.repoManager,
			)
			require.ErrorIs(t, err, tt.expectedErr)
			require.Nil(t, svc)
		})
	}
}

func TestIdentity(t *testing.T) {
	env := newTestEnv(t)

	identity := env.svc.Identity()
	require.Equal(t, brokerAddress, identity.Address)
	require.Equal(t, matcherAddress, identity.MatcherAddress)

	registration := env.svc.Registration()
	require.Equal(t, brokerAddress, registration.Address)
	require.NotEmpty(t, registration.PublicKey)
	require.Empty(t, registration.CallbackURL)

	env.hub.AssertCalled(t, "OnOrderStatusResponse", env.svc)
}

func TestSignTrade(t *testing.T) {
	env := newTestEnv(t)

	msg, err := env.svc.SignTrade(
		domain.SubOrder{Symbol: "ETH-USDT", Side: domain.SideBuy}, newTrade(timestamp),
	)
	require.NoError(t, err)
	require.True(t, msg.IsSigned())
	require.False(t, msg.BuySide)
	require.Equal(t, uint64(4000000), msg.MatcherFee)
	require.Equal(t, usdtAsset, msg.MatcherFeeAsset)

	id, err := eip712signer.HashMessage(*msg)
	require.NoError(t, err)
	require.Equal(t, id, msg.ID)

	signer, err := eip712signer.RecoverSigner(*msg)
	require.NoError(t, err)
	require.Equal(t, brokerAddress, signer)

	_, err = env.svc.SignTrade(
		domain.SubOrder{Symbol: "ETH-BTC", Side: domain.SideBuy}, newTrade(timestamp),
	)
	require.ErrorIs(t, err, domain.ErrUnknownAsset)
}

func TestSettleTrade(t *testing.T) {
	env := newTestEnv(t)
	env.mockSuccessfulRelay()
	env.handler.On("OnOrderStatus", mock.Anything, mock.Anything).Return(nil)

	ctx := context.Background()
	msg, err := env.svc.SettleTrade(
		ctx, orderID,
		domain.SubOrder{Symbol: "ETH-USDT", Side: domain.SideSell}, newTrade(timestamp),
	)
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.True(t, msg.BuySide)
	require.Equal(t, ethAsset, msg.MatcherFeeAsset)
	require.Equal(t, uint64(2000000), msg.MatcherFee)

	env.hub.AssertNumberOfCalls(t, "SendTrade", 1)
	env.hub.AssertCalled(t, "SendTrade", mock.Anything, orderID, *msg)
	env.handler.AssertNumberOfCalls(t, "OnOrderStatus", 1)

	record, err := env.svc.GetSettlement(ctx, msg.ID)
	require.NoError(t, err)
	require.True(t, record.IsAcknowledged())
	require.Equal(t, ackPayload, record.Ack)
	require.Equal(t, *msg, record.Message)

	records, err := env.svc.ListSettlementsByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	pending, err := env.svc.ListPendingSettlements(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestSettleTradeDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.mockSuccessfulRelay()
	env.handler.On("OnOrderStatus", mock.Anything, mock.Anything).Return(nil)

	ctx := context.Background()
	subOrder := domain.SubOrder{Symbol: "ETH-USDT", Side: domain.SideBuy}

	_, err := env.svc.SettleTrade(ctx, orderID, subOrder, newTrade(timestamp))
	require.NoError(t, err)

	// Same fields, same timestamp: the id collides and the second relay is
	// refused.
	_, err = env.svc.SettleTrade(ctx, orderID, subOrder, newTrade(timestamp))
	require.ErrorIs(t, err, domain.ErrSettlementAlreadyExists)

	env.hub.AssertNumberOfCalls(t, "SendTrade", 1)
}

func TestSettleTradeHubFailure(t *testing.T) {
	env := newTestEnv(t)
	env.hub.On("SendTrade", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, hubErr).Once()

	ctx := context.Background()
	subOrder := domain.SubOrder{Symbol: "ETH-USDT", Side: domain.SideBuy}

	msg, settleErr := env.svc.SettleTrade(ctx, orderID, subOrder, newTrade(timestamp))
	require.ErrorIs(t, settleErr, hubErr)
	require.Nil(t, msg)
	env.handler.AssertNotCalled(t, "OnOrderStatus", mock.Anything, mock.Anything)

	records, err := env.svc.ListSettlementsByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	failed := records[0]
	require.True(t, failed.IsFailed())
	require.Equal(t, hubErr.Error(), failed.Error)
	require.Contains(t, settleErr.Error(), failed.ID)

	// The very same signed message is relayed again.
	env.mockSuccessfulRelay()
	env.handler.On("OnOrderStatus", mock.Anything, mock.Anything).Return(nil)

	ack, err := env.svc.ResendSettlement(ctx, failed.ID)
	require.NoError(t, err)
	require.Equal(t, failed.ID, ack.MessageID)
	env.hub.AssertCalled(t, "SendTrade", mock.Anything, orderID, failed.Message)

	record, err := env.svc.GetSettlement(ctx, failed.ID)
	require.NoError(t, err)
	require.True(t, record.IsAcknowledged())
	require.Equal(t, 2, record.Attempts)
	require.Equal(t, failed.Message.Signature, record.Message.Signature)

	_, err = env.svc.ResendSettlement(ctx, failed.ID)
	require.ErrorIs(t, err, domain.ErrSettlementNotFailed)

	_, err = env.svc.ResendSettlement(ctx, "0xmissing")
	require.ErrorIs(t, err, domain.ErrSettlementNotFound)
}

func TestFailingSettleTrade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		orderID     string
		subOrder    domain.SubOrder
		trade       domain.Trade
		expectedErr error
	}{
		{
			name:        "missing_order_id",
			subOrder:    domain.SubOrder{Symbol: "ETH-USDT", Side: domain.SideBuy},
			trade:       newTrade(timestamp),
			expectedErr: domain.ErrInvalidOrderID,
		},
		{
			name:        "malformed_pair",
			orderID:     orderID,
			subOrder:    domain.SubOrder{Symbol: "ETHUSDT", Side: domain.SideBuy},
			trade:       newTrade(timestamp),
			expectedErr: domain.ErrMalformedPair,
		},
		{
			name:        "invalid_side",
			orderID:     orderID,
			subOrder:    domain.SubOrder{Symbol: "ETH-USDT", Side: "hold"},
			trade:       newTrade(timestamp),
			expectedErr: domain.ErrInvalidSide,
		},
		{
			name:     "negative_amount",
			orderID:  orderID,
			subOrder: domain.SubOrder{Symbol: "ETH-USDT", Side: domain.SideBuy},
			trade: domain.Trade{
				Amount: decimal.NewFromInt(-1), Price: decimal.NewFromInt(2),
				Timestamp: timestamp,
			},
			expectedErr: domain.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.SettleTrade(ctx, tt.orderID, tt.subOrder, tt.trade)
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}

	env.hub.AssertNotCalled(t, "SendTrade", mock.Anything, mock.Anything, mock.Anything)
}

func TestOnOrderStatus(t *testing.T) {
	t.Run("unknown settlement", func(t *testing.T) {
		env := newTestEnv(t)
		env.handler.On("OnOrderStatus", mock.Anything, mock.Anything).Return(nil)

		ack := domain.SettlementAck{MessageID: "0xmissing", Payload: ackPayload}
		err := env.svc.OnOrderStatus(context.Background(), ack)
		require.ErrorIs(t, err, domain.ErrSettlementNotFound)
		env.handler.AssertCalled(t, "OnOrderStatus", mock.Anything, ack)
	})

	t.Run("missing id", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.svc.OnOrderStatus(context.Background(), domain.SettlementAck{})
		require.ErrorIs(t, err, settlement.ErrMissingAckID)
		env.handler.AssertNotCalled(t, "OnOrderStatus", mock.Anything, mock.Anything)
	})

	t.Run("handler failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.mockSuccessfulRelay()
		env.handler.On("OnOrderStatus", mock.Anything, mock.Anything).
			Return(fmt.Errorf("order not found"))

		msg, err := env.svc.SettleTrade(
			context.Background(), orderID,
			domain.SubOrder{Symbol: "ETH-USDT", Side: domain.SideBuy}, newTrade(timestamp),
		)
		require.NoError(t, err)

		record, err := env.svc.GetSettlement(context.Background(), msg.ID)
		require.NoError(t, err)
		require.True(t, record.IsAcknowledged())
	})
}

func TestSettleTradesConcurrently(t *testing.T) {
	env := newTestEnv(t)
	env.mockSuccessfulRelay()
	env.handler.On("OnOrderStatus", mock.Anything, mock.Anything).Return(nil)

	ctx := context.Background()
	numOfTrades := 20

	wg := &sync.WaitGroup{}
	wg.Add(numOfTrades)
	for i := 0; i < numOfTrades; i++ {
		go func(i int) {
			defer wg.Done()
			side := domain.SideBuy
			if i%2 == 0 {
				side = domain.SideSell
			}
			_, err := env.svc.SettleTrade(
				ctx, orderID, domain.SubOrder{Symbol: "ETH-USDT", Side: side},
				newTrade(timestamp+int64(i)),
			)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	records, err := env.svc.ListSettlementsByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, records, numOfTrades)
	for _, r := range records {
		require.True(t, r.IsAcknowledged())
	}
	env.handler.AssertNumberOfCalls(t, "OnOrderStatus", numOfTrades)
}
