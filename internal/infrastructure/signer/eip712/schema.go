package eip712signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/spintrade/orion-broker/internal/core/domain"
)

const (
	domainTypeName = "EIP712Domain"
	orderTypeName  = "Order"

	// hashPrefix is the version byte prepended to the packed message fields.
	hashPrefix = byte(0x03)
)

var (
	domainType = []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "salt", Type: "bytes32"},
	}

	// orderType lists the message fields in hashing order. Any change breaks
	// the hub verifier.
	orderType = []apitypes.Type{
		{Name: "senderAddress", Type: "address"},
		{Name: "matcherAddress", Type: "address"},
		{Name: "baseAsset", Type: "address"},
		{Name: "quoteAsset", Type: "address"},
		{Name: "matcherFeeAsset", Type: "address"},
		{Name: "amount", Type: "uint64"},
		{Name: "price", Type: "uint64"},
		{Name: "matcherFee", Type: "uint64"},
		{Name: "nonce", Type: "uint64"},
		{Name: "expiration", Type: "uint64"},
		{Name: "buySide", Type: "uint8"},
	}

	domainData = apitypes.TypedDataDomain{
		Name:    "Orion Exchange",
		Version: "1",
		ChainId: math.NewHexOrDecimal256(3),
		Salt:    "0xf2d857f4a3edcb9b78b4d503bfe733db1e3f6cdc2b7971ee739626c97e86a557",
	}
)

func newTypedData(msg domain.SettlementMessage) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			domainTypeName: domainType,
			orderTypeName:  orderType,
		},
		PrimaryType: orderTypeName,
		Domain:      domainData,
		Message: apitypes.TypedDataMessage{
			"senderAddress":   msg.SenderAddress,
			"matcherAddress":  msg.MatcherAddress,
			"baseAsset":       msg.BaseAsset,
			"quoteAsset":      msg.QuoteAsset,
			"matcherFeeAsset": msg.MatcherFeeAsset,
			"amount":          uint256(msg.Amount),
			"price":           uint256(msg.Price),
			"matcherFee":      uint256(msg.MatcherFee),
			"nonce":           uint256(msg.Nonce),
			"expiration":      uint256(msg.Expiration),
			"buySide":         uint256(uint64(msg.BuySideFlag())),
		},
	}
}

func uint256(v uint64) *math.HexOrDecimal256 {
	return (*math.HexOrDecimal256)(new(big.Int).SetUint64(v))
}
