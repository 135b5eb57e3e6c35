package pricing

// OrderPriceSummary is the engine output for one checkout computation.
type OrderPriceSummary struct {
	Subtotal              Money
	TotalDiscount         Money
	SubtotalAfterDiscount Money
	DeliveryCharge        Money
	GrandTotal            Money
}

// ComposeTotal combines the order components. Negative inputs are floored at
// zero and the discount never exceeds the subtotal.
func ComposeTotal(subtotal, totalDiscount, deliveryCharge Money) OrderPriceSummary {
	subtotal = SafeNonNegative(subtotal)
	totalDiscount = Min(SafeNonNegative(totalDiscount), subtotal)
	deliveryCharge = SafeNonNegative(deliveryCharge)
	after := SafeNonNegative(subtotal.Sub(totalDiscount))
	return OrderPriceSummary{
		Subtotal:              subtotal,
		TotalDiscount:         totalDiscount,
		SubtotalAfterDiscount: after,
		DeliveryCharge:        deliveryCharge,
		GrandTotal:            after.Add(deliveryCharge),
	}
}

// Equal reports whether two summaries hold the same amounts.
func (s OrderPriceSummary) Equal(o OrderPriceSummary) bool {
	return s.Subtotal.Equal(o.Subtotal) &&
		s.TotalDiscount.Equal(o.TotalDiscount) &&
		s.SubtotalAfterDiscount.Equal(o.SubtotalAfterDiscount) &&
		s.DeliveryCharge.Equal(o.DeliveryCharge) &&
		s.GrandTotal.Equal(o.GrandTotal)
}
