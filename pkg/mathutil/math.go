package mathutil

import (
	"errors"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits carried by fixed-point
// amounts.
const Precision = 8

var (
	//BigOne represents a single unit of an asset with precision 8
	BigOne = uint64(math.Pow10(Precision))
	//BigOneDecimal represents a single unit of an asset with precision 8 as decimal.Decimal
	BigOneDecimal = decimal.NewFromInt(int64(BigOne))

	maxUint64Decimal = decimal.NewFromBigInt(
		new(big.Int).SetUint64(math.MaxUint64), 0,
	)
)

var (
	// ErrNegativeValue is returned when scaling a value below zero.
	ErrNegativeValue = errors.New("value must not be negative")
	// ErrValueOverflow is returned when a scaled value does not fit 64 bits.
	ErrValueOverflow = errors.New("scaled value exceeds 64-bit range")
)

// ToFixedPoint scales the given decimal by 10^8 and rounds the result half
// away from zero, ie. 1.000000005 becomes 100000001.
func ToFixedPoint(value decimal.Decimal) (uint64, error) {
	if value.IsNegative() {
		return 0, ErrNegativeValue
	}
	scaled := MulDecimal(value, BigOneDecimal).Round(0)
	if scaled.GreaterThan(maxUint64Decimal) {
		return 0, ErrValueOverflow
	}
	return scaled.BigInt().Uint64(), nil
}

// FromFixedPoint is the inverse of ToFixedPoint, exact up to the rounding
// applied when scaling.
func FromFixedPoint(value uint64) decimal.Decimal {
	return DivDecimal(
		decimal.NewFromBigInt(new(big.Int).SetUint64(value), 0), BigOneDecimal,
	)
}

// AddUint64 returns x + y or ErrValueOverflow.
func AddUint64(x, y uint64) (uint64, error) {
	z := x + y
	if z < x {
		return 0, ErrValueOverflow
	}
	return z, nil
}

// MulDecimal takes two decimal.Decimal numbers and multiply them x * y and returns the result as decimal.Decimal
func MulDecimal(X, Y decimal.Decimal) (z decimal.Decimal) {
	z = X.Mul(Y)
	return
}

// DivDecimal takes two decimal.Decimal numbers and divides them x / y and returns the result as decimal.Decimal
func DivDecimal(X, Y decimal.Decimal) (z decimal.Decimal) {
	z = X.DivRound(Y, Precision)
	return
}
