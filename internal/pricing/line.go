package pricing

import "github.com/shopspring/decimal"

// CartLine is one entry of a cart snapshot. UnitPrice is the catalog price at
// the time the cart was read.
type CartLine struct {
	ProductRef string
	UnitPrice  Money
	Quantity   int
}

// DiscountProfile holds the per-tier discount percentages configured for a product.
type DiscountProfile struct {
	EntrepreneurPercent decimal.Decimal
	TraineePercent      decimal.Decimal
}

// PercentFor selects the discount column for tier, clamped to [0, 100].
func (p DiscountProfile) PercentFor(tier Tier) decimal.Decimal {
	switch tier {
	case TierEntrepreneur:
		return ClampPercent(p.EntrepreneurPercent)
	case TierTraineeEntrepreneur:
		return ClampPercent(p.TraineePercent)
	case TierStandard:
		return zero
	default:
		return zero
	}
}

// Clamped returns a copy with both percentages bounded to [0, 100].
func (p DiscountProfile) Clamped() DiscountProfile {
	return DiscountProfile{
		EntrepreneurPercent: ClampPercent(p.EntrepreneurPercent),
		TraineePercent:      ClampPercent(p.TraineePercent),
	}
}

// PricedLine is a cart line with its subtotal and tier discount resolved.
type PricedLine struct {
	Line              CartLine
	LineSubtotal      Money
	ApplicablePercent decimal.Decimal
	LineDiscount      Money
}

// PriceLine prices a single line. Malformed numbers are coerced: a negative
// unit price or a quantity below 1 yields a zero subtotal.
func PriceLine(line CartLine, profile DiscountProfile, tier Tier) PricedLine {
	unit := SafeNonNegative(line.UnitPrice)
	qty := line.Quantity
	if qty < 1 {
		qty = 0
	}
	subtotal := unit.Mul(decimal.NewFromInt(int64(qty)))
	pct := profile.PercentFor(tier)
	discount := Clamp(PercentOf(subtotal, pct), zero, subtotal)
	return PricedLine{
		Line:              line,
		LineSubtotal:      subtotal,
		ApplicablePercent: pct,
		LineDiscount:      discount,
	}
}
