package pricing

// DeliveryRule maps an inclusive amount range to a flat delivery fee.
// A nil IsActive is treated as active.
type DeliveryRule struct {
	ID        string
	MinAmount Money
	MaxAmount Money
	Charge    Money
	IsActive  *bool
}

// Active reports whether the rule takes part in matching.
func (r DeliveryRule) Active() bool {
	return r.IsActive == nil || *r.IsActive
}

// Covers reports whether amount lies within [MinAmount, MaxAmount].
func (r DeliveryRule) Covers(amount Money) bool {
	return !amount.LessThan(r.MinAmount) && !amount.GreaterThan(r.MaxAmount)
}

// MatchDeliveryRule returns the active rule covering amount. When ranges
// overlap the rule with the smallest MaxAmount wins; equal upper bounds keep
// the order in which rules were supplied.
func MatchDeliveryRule(rules []DeliveryRule, amount Money) (DeliveryRule, bool) {
	var (
		best  DeliveryRule
		found bool
	)
	for _, r := range rules {
		if !r.Active() || !r.Covers(amount) {
			continue
		}
		if !found || r.MaxAmount.LessThan(best.MaxAmount) {
			best = r
			found = true
		}
	}
	return best, found
}

// CoveringDeliveryRules returns every active rule covering amount, in input
// order. More than one result means the configured ranges overlap at amount.
func CoveringDeliveryRules(rules []DeliveryRule, amount Money) []DeliveryRule {
	var out []DeliveryRule
	for _, r := range rules {
		if r.Active() && r.Covers(amount) {
			out = append(out, r)
		}
	}
	return out
}

// ResolveDeliveryCharge returns the fee for amount, or zero when no active
// rule matches.
func ResolveDeliveryCharge(rules []DeliveryRule, amount Money) Money {
	rule, ok := MatchDeliveryRule(rules, amount)
	if !ok {
		return zero
	}
	return SafeNonNegative(rule.Charge)
}
