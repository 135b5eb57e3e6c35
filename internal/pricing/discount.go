package pricing

// Subtotal sums the line subtotals.
func Subtotal(lines []PricedLine) Money {
	total := zero
	for _, l := range lines {
		total = total.Add(SafeNonNegative(l.LineSubtotal))
	}
	return total
}

// AggregateDiscount sums the line discounts and caps the result at the order
// subtotal.
func AggregateDiscount(lines []PricedLine) Money {
	sum := zero
	for _, l := range lines {
		sum = sum.Add(SafeNonNegative(l.LineDiscount))
	}
	return Min(sum, Subtotal(lines))
}
