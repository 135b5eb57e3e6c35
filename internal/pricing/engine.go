package pricing

// Policy selects how the engine treats malformed input.
type Policy int

const (
	// Lenient coerces malformed numbers to zero and never fails.
	Lenient Policy = iota
	// Strict rejects malformed lines and rules with a *MalformedInputError.
	Strict
)

// CatalogLookup resolves the discount profile for a product reference.
type CatalogLookup interface {
	Profile(productRef string) (DiscountProfile, bool)
}

// MapCatalog is an in-memory CatalogLookup.
type MapCatalog map[string]DiscountProfile

// Profile implements CatalogLookup.
func (m MapCatalog) Profile(ref string) (DiscountProfile, bool) {
	p, ok := m[ref]
	return p, ok
}

// CatalogFunc adapts a function to CatalogLookup.
type CatalogFunc func(productRef string) (DiscountProfile, bool)

// Profile implements CatalogLookup.
func (f CatalogFunc) Profile(ref string) (DiscountProfile, bool) {
	if f == nil {
		return DiscountProfile{}, false
	}
	return f(ref)
}

// Quote is the full result of a pricing run: the summary, the per-line
// breakdown and the delivery rule that produced the fee, if any.
type Quote struct {
	Summary      OrderPriceSummary
	Lines        []PricedLine
	DeliveryRule *DeliveryRule
}

// Engine runs the pricing pipeline. The zero value is a lenient engine.
type Engine struct {
	Policy Policy
}

// Compute prices lines for tier, aggregates the discount, resolves the
// delivery fee against the post-discount subtotal and composes the total.
// Lines whose product is unknown to catalog get no discount.
func (e Engine) Compute(lines []CartLine, catalog CatalogLookup, tier Tier, rules []DeliveryRule) (Quote, error) {
	if e.Policy == Strict {
		for i, l := range lines {
			if err := ValidateLine(i, l); err != nil {
				return Quote{}, err
			}
		}
		for i, r := range rules {
			if err := ValidateRule(i, r); err != nil {
				return Quote{}, err
			}
		}
	}

	priced := make([]PricedLine, 0, len(lines))
	for _, l := range lines {
		var profile DiscountProfile
		if catalog != nil {
			if p, ok := catalog.Profile(l.ProductRef); ok {
				profile = p
			}
		}
		priced = append(priced, PriceLine(l, profile, tier))
	}

	subtotal := Subtotal(priced)
	discount := AggregateDiscount(priced)
	after := SafeNonNegative(subtotal.Sub(discount))

	var matched *DeliveryRule
	charge := zero
	if rule, ok := MatchDeliveryRule(rules, after); ok {
		r := rule
		matched = &r
		charge = SafeNonNegative(rule.Charge)
	}

	return Quote{
		Summary:      ComposeTotal(subtotal, discount, charge),
		Lines:        priced,
		DeliveryRule: matched,
	}, nil
}

// ComputeOrderPriceSummary runs a lenient engine and returns only the summary.
func ComputeOrderPriceSummary(lines []CartLine, catalog CatalogLookup, tier Tier, rules []DeliveryRule) OrderPriceSummary {
	q, _ := Engine{}.Compute(lines, catalog, tier, rules)
	return q.Summary
}
