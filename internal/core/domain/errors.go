package domain

import "errors"

var (
	// ErrUnknownAsset is returned if an asset or symbol is not part of the
	// static asset table.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrMalformedPair is returned if a trading pair symbol is not in the form
	// BASE-QUOTE.
	ErrMalformedPair = errors.New("malformed trading pair")
	// ErrInvalidAmount is returned if an amount, price, fee or timestamp is
	// negative or does not fit 64 bits once scaled.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidSide is returned for sides other than buy or sell.
	ErrInvalidSide = errors.New("side must be either buy or sell")
	// ErrInvalidAssetAddress ...
	ErrInvalidAssetAddress = errors.New("asset must be a valid hex address")
	// ErrInvalidAssetSymbol ...
	ErrInvalidAssetSymbol = errors.New(
		"asset symbol must be a non empty uppercase string without separator",
	)
	// ErrDuplicateAsset is returned if the asset table maps two symbols to the
	// same address or vice versa.
	ErrDuplicateAsset = errors.New("asset table must be bijective")
	// ErrEmptyAssetTable ...
	ErrEmptyAssetTable = errors.New("asset table must not be empty")
	// ErrInvalidBrokerAddress ...
	ErrInvalidBrokerAddress = errors.New("broker address must be a valid hex address")
	// ErrInvalidMatcherAddress ...
	ErrInvalidMatcherAddress = errors.New("matcher address must be a valid hex address")
	// ErrMessageNotSigned is returned when attempting to relay a settlement
	// message whose id or signature are not computed yet.
	ErrMessageNotSigned = errors.New("settlement message must be hashed and signed")

	// ErrSettlementNotFound ...
	ErrSettlementNotFound = errors.New("settlement not found")
	// ErrSettlementAlreadyExists is returned when journaling a message with an
	// id already seen, ie. two trades sharing every field including nonce.
	ErrSettlementAlreadyExists = errors.New("settlement with same id already exists")
	// ErrSettlementNotPending ...
	ErrSettlementNotPending = errors.New("settlement is not pending")
	// ErrSettlementNotFailed ...
	ErrSettlementNotFailed = errors.New("only failed settlements can be resent")

	// ErrInvalidOrderID ...
	ErrInvalidOrderID = errors.New("order id must not be empty")
	// ErrInvalidOrderType ...
	ErrInvalidOrderType = errors.New("order type must be either limit or market")
	// ErrInvalidBalance ...
	ErrInvalidBalance = errors.New("balances must not be negative")
)
