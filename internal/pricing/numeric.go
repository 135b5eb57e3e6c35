package pricing

import "github.com/shopspring/decimal"

// Money is an exact decimal currency amount. Rounding happens only when an
// amount leaves the engine for display.
type Money = decimal.Decimal

var (
	zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

// Clamp bounds v to the closed interval [lo, hi]. When lo > hi the interval is
// treated as empty and lo is returned.
func Clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if lo.GreaterThan(hi) {
		return lo
	}
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// SafeNonNegative returns v, or zero when v is negative.
func SafeNonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return zero
	}
	return v
}

// ClampPercent bounds a discount percentage to [0, 100].
func ClampPercent(v decimal.Decimal) decimal.Decimal {
	return Clamp(v, zero, hundred)
}

// PercentOf returns pct percent of amount without intermediate rounding.
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Shift(-2)
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
