package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spintrade/orion-broker/pkg/mathutil"
)

var (
	// MatcherFeeRate is the 0.2% fee charged by the matcher on every
	// settlement.
	MatcherFeeRate = decimal.New(2, -3)
	// DefaultExpiration is the validity window of a settlement message.
	DefaultExpiration = 29 * 24 * time.Hour
)

// BrokerIdentity holds the addresses stamped on every settlement message. It
// is built once at startup.
type BrokerIdentity struct {
	// Address is derived from the broker's signing key.
	Address        string
	MatcherAddress string
}

// NewBrokerIdentity validates and normalizes the given addresses.
func NewBrokerIdentity(address, matcherAddress string) (BrokerIdentity, error) {
	if !common.IsHexAddress(address) {
		return BrokerIdentity{}, ErrInvalidBrokerAddress
	}
	if !common.IsHexAddress(matcherAddress) {
		return BrokerIdentity{}, ErrInvalidMatcherAddress
	}
	return BrokerIdentity{
		Address:        normalizeAddress(address),
		MatcherAddress: normalizeAddress(matcherAddress),
	}, nil
}

// SettlementMessage is the canonical record of a matched trade, hashed and
// signed by the broker and verified by the hub.
// Amount, Price and MatcherFee are fixed-point integers with 8 decimals,
// Nonce and Expiration are milliseconds.
type SettlementMessage struct {
	ID              string `json:"id"`
	SenderAddress   string `json:"senderAddress"`
	MatcherAddress  string `json:"matcherAddress"`
	BaseAsset       string `json:"baseAsset"`
	QuoteAsset      string `json:"quoteAsset"`
	MatcherFeeAsset string `json:"matcherFeeAsset"`
	Amount          uint64 `json:"amount"`
	Price           uint64 `json:"price"`
	MatcherFee      uint64 `json:"matcherFee"`
	Nonce           uint64 `json:"nonce"`
	Expiration      uint64 `json:"expiration"`
	BuySide         bool   `json:"-"`
	Signature       string `json:"signature"`
}

// NewSettlementMessage turns a sub-order and one of its trades into an
// unsigned settlement message. The broker settles on the counter side of the
// sub-order and pays the matcher fee in the asset it receives.
func NewSettlementMessage(
	identity BrokerIdentity, registry *AssetRegistry,
	subOrder SubOrder, trade Trade,
) (*SettlementMessage, error) {
	if !subOrder.Side.IsValid() {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidSide, subOrder.Side)
	}
	baseAsset, quoteAsset, err := registry.PairToAssets(subOrder.Symbol)
	if err != nil {
		return nil, err
	}
	if err := trade.validate(); err != nil {
		return nil, err
	}

	buySide := subOrder.Side.Counter() == SideBuy
	matcherFeeAsset := quoteAsset
	matcherFee := trade.Amount.Mul(trade.Price).Mul(MatcherFeeRate)
	if buySide {
		matcherFeeAsset = baseAsset
		matcherFee = trade.Amount.Mul(MatcherFeeRate)
	}

	amount, err := toFixedPoint("amount", trade.Amount)
	if err != nil {
		return nil, err
	}
	price, err := toFixedPoint("price", trade.Price)
	if err != nil {
		return nil, err
	}
	fee, err := toFixedPoint("matcher fee", matcherFee)
	if err != nil {
		return nil, err
	}

	nonce := uint64(trade.Timestamp)
	expiration, err := mathutil.AddUint64(nonce, uint64(DefaultExpiration.Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("%w: expiration: %s", ErrInvalidAmount, err)
	}

	return &SettlementMessage{
		SenderAddress:   identity.Address,
		MatcherAddress:  identity.MatcherAddress,
		BaseAsset:       baseAsset,
		QuoteAsset:      quoteAsset,
		MatcherFeeAsset: matcherFeeAsset,
		Amount:          amount,
		Price:           price,
		MatcherFee:      fee,
		Nonce:           nonce,
		Expiration:      expiration,
		BuySide:         buySide,
	}, nil
}

// IsHashed returns whether the message id has been computed.
func (m SettlementMessage) IsHashed() bool {
	return len(m.ID) > 0
}

// IsSigned returns whether both id and signature have been computed, ie. the
// message can be relayed.
func (m SettlementMessage) IsSigned() bool {
	return m.IsHashed() && len(m.Signature) > 0
}

// BuySideFlag returns BuySide as the uint8 used by the signing schema.
func (m SettlementMessage) BuySideFlag() uint8 {
	if m.BuySide {
		return 1
	}
	return 0
}

// Unsigned returns a copy of the message with empty id and signature.
func (m SettlementMessage) Unsigned() SettlementMessage {
	m.ID, m.Signature = "", ""
	return m
}

// IsFeeAssetConsistent returns whether the fee asset is the one implied by the
// message side.
func (m SettlementMessage) IsFeeAssetConsistent() bool {
	expected := m.QuoteAsset
	if m.BuySide {
		expected = m.BaseAsset
	}
	return strings.EqualFold(expected, m.MatcherFeeAsset)
}

type settlementMessageAlias SettlementMessage

// MarshalJSON encodes buySide as 0 or 1, matching the uint8 schema field.
func (m SettlementMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		settlementMessageAlias
		BuySide uint8 `json:"buySide"`
	}{settlementMessageAlias(m), m.BuySideFlag()})
}

func (m *SettlementMessage) UnmarshalJSON(buf []byte) error {
	aux := struct {
		*settlementMessageAlias
		BuySide uint8 `json:"buySide"`
	}{settlementMessageAlias: (*settlementMessageAlias)(m)}
	if err := json.Unmarshal(buf, &aux); err != nil {
		return err
	}
	if aux.BuySide > 1 {
		return fmt.Errorf("buySide must be either 0 or 1, got %d", aux.BuySide)
	}
	m.BuySide = aux.BuySide == 1
	return nil
}

func toFixedPoint(field string, value decimal.Decimal) (uint64, error) {
	v, err := mathutil.ToFixedPoint(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %s", ErrInvalidAmount, field, value, err)
	}
	return v, nil
}
