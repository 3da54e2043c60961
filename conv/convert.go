package conv

import (
	"fmt"

	"github.com/ericlagergren/decimal"
)

// AmountPrecision is the number of fractional digits kept for wallet amounts
const AmountPrecision = 2

var zeroRounded decimal.Big

func init() {
	zeroRounded = decimal.Big{}
	zeroRounded.Context = decimal.Context128
	zeroRounded.Context.RoundingMode = decimal.ToZero
	zeroRounded.Quantize(AmountPrecision)
}

// NewDecimalWithPrecision returns a zero amount carrying the amount rounding context
func NewDecimalWithPrecision() *decimal.Big {
	z := zeroRounded
	return &z
}

func CloneToPrecision(devAmount *decimal.Big) *decimal.Big {
	dec := &decimal.Big{}
	dec.Context = decimal.Context128
	dec.Context.RoundingMode = decimal.ToZero
	dec.Copy(devAmount)
	dec.Quantize(AmountPrecision)
	return dec
}

func RoundToPrecision(decAmount *decimal.Big) *decimal.Big {
	decAmount.Context = decimal.Context128
	decAmount.Context.RoundingMode = decimal.ToZero
	decAmount.Quantize(AmountPrecision)

	return decAmount
}

// ParseAmount parses a decimal string as is, extra fraction digits are kept for FitsPrecision to judge
func ParseAmount(amount string) (*decimal.Big, error) {
	dec := NewDecimalWithPrecision()
	if _, ok := dec.SetString(amount); !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if dec.IsNaN(0) || dec.IsInf(0) {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	return dec, nil
}

// FitsPrecision reports whether the amount is unchanged by rounding to AmountPrecision
func FitsPrecision(amount *decimal.Big) bool {
	if amount == nil || amount.IsNaN(0) || amount.IsInf(0) {
		return false
	}
	return CloneToPrecision(amount).Cmp(amount) == 0
}

// IsPositive reports whether the amount is strictly greater than zero
func IsPositive(amount *decimal.Big) bool {
	if amount == nil || amount.IsNaN(0) {
		return false
	}
	return amount.Sign() > 0
}

// Sum adds up the given amounts, skipping nil values
func Sum(amounts ...*decimal.Big) *decimal.Big {
	total := NewDecimalWithPrecision()
	for _, amount := range amounts {
		if amount == nil {
			continue
		}
		total.Add(total, amount)
	}
	return RoundToPrecision(total)
}
