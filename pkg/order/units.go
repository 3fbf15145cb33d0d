package order

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/bluefin-exchange/bluefin-go/params"
)

// ToBaseUnits converts a human-readable decimal into fixed-point base
// units (10^18 scale). Fractions below the scale are truncated.
func ToBaseUnits(d decimal.Decimal) *big.Int {
	return d.Shift(params.BaseDecimals).BigInt()
}

// FromBaseUnits converts fixed-point base units back to a decimal.
func FromBaseUnits(v *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(v, -params.BaseDecimals)
}
