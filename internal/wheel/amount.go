package wheel

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the fixed-point precision of the betting token.
const TokenDecimals = 18

// multiplierScale is the power of ten the contract scales multipliers by.
const multiplierScale = 2

// ToBaseUnits converts a decimal token amount into the 18-decimal integer the
// contracts work in, truncating any excess precision.
func ToBaseUnits(amount decimal.Decimal) *big.Int {
	return amount.Shift(TokenDecimals).Floor().BigInt()
}

func FromBaseUnits(units *big.Int) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -TokenDecimals)
}

// MultiplierFromScaled turns the contract's x100 multiplier into a decimal.
func MultiplierFromScaled(scaled *big.Int) decimal.Decimal {
	if scaled == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(scaled, -multiplierScale)
}

// ScaledMultiplier is the inverse of MultiplierFromScaled.
func ScaledMultiplier(m decimal.Decimal) *big.Int {
	return m.Shift(multiplierScale).Floor().BigInt()
}

// Payout is multiplier*bet in base units for a win and zero otherwise.
func Payout(multiplier, bet decimal.Decimal, isWin bool) *big.Int {
	if !isWin {
		return new(big.Int)
	}
	return multiplier.Mul(bet).Shift(TokenDecimals).Floor().BigInt()
}
