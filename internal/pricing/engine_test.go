package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func active(v bool) *bool { return &v }

func TestPriceLineTierMapping(t *testing.T) {
	line := CartLine{ProductRef: "p1", UnitPrice: d("100"), Quantity: 2}
	profile := DiscountProfile{EntrepreneurPercent: d("20"), TraineePercent: d("5")}

	cases := []struct {
		tier Tier
		want string
	}{
		{TierEntrepreneur, "40"},
		{TierTraineeEntrepreneur, "10"},
		{TierStandard, "0"},
		{Tier("GOLD"), "0"},
		{Tier(""), "0"},
	}
	for _, tc := range cases {
		got := PriceLine(line, profile, tc.tier)
		if !got.LineSubtotal.Equal(d("200")) {
			t.Fatalf("%s: expected subtotal 200, got %s", tc.tier, got.LineSubtotal)
		}
		if !got.LineDiscount.Equal(d(tc.want)) {
			t.Fatalf("%s: expected discount %s, got %s", tc.tier, tc.want, got.LineDiscount)
		}
	}
}

func TestPriceLineClampsUntrustedPercent(t *testing.T) {
	line := CartLine{UnitPrice: d("50"), Quantity: 1}
	over := PriceLine(line, DiscountProfile{EntrepreneurPercent: d("150")}, TierEntrepreneur)
	if !over.ApplicablePercent.Equal(d("100")) || !over.LineDiscount.Equal(d("50")) {
		t.Fatalf("expected percent clamped to 100, got %s / %s", over.ApplicablePercent, over.LineDiscount)
	}
	under := PriceLine(line, DiscountProfile{TraineePercent: d("-10")}, TierTraineeEntrepreneur)
	if !under.ApplicablePercent.IsZero() || !under.LineDiscount.IsZero() {
		t.Fatalf("expected negative percent clamped to 0, got %s / %s", under.ApplicablePercent, under.LineDiscount)
	}
}

func TestPriceLineCoercesMalformedNumbers(t *testing.T) {
	profile := DiscountProfile{EntrepreneurPercent: d("10")}
	neg := PriceLine(CartLine{UnitPrice: d("-5"), Quantity: 3}, profile, TierEntrepreneur)
	if !neg.LineSubtotal.IsZero() || !neg.LineDiscount.IsZero() {
		t.Fatalf("expected negative price to price at zero, got %s", neg.LineSubtotal)
	}
	noQty := PriceLine(CartLine{UnitPrice: d("5"), Quantity: -2}, profile, TierEntrepreneur)
	if !noQty.LineSubtotal.IsZero() {
		t.Fatalf("expected negative quantity to price at zero, got %s", noQty.LineSubtotal)
	}
}

func TestPriceLineKeepsFractionalCents(t *testing.T) {
	got := PriceLine(CartLine{UnitPrice: d("33.33"), Quantity: 3}, DiscountProfile{EntrepreneurPercent: d("12.5")}, TierEntrepreneur)
	if !got.LineSubtotal.Equal(d("99.99")) {
		t.Fatalf("expected 99.99, got %s", got.LineSubtotal)
	}
	if !got.LineDiscount.Equal(d("12.49875")) {
		t.Fatalf("expected unrounded discount 12.49875, got %s", got.LineDiscount)
	}
}

func TestAggregateDiscountCapsAtSubtotal(t *testing.T) {
	lines := []PricedLine{
		{LineSubtotal: d("100"), LineDiscount: d("80")},
		{LineSubtotal: d("50"), LineDiscount: d("90")},
	}
	if got := AggregateDiscount(lines); !got.Equal(d("150")) {
		t.Fatalf("expected discount capped at 150, got %s", got)
	}
	if got := AggregateDiscount(nil); !got.IsZero() {
		t.Fatalf("expected zero discount for no lines, got %s", got)
	}
}

func TestResolveDeliveryChargeTieBreak(t *testing.T) {
	rules := []DeliveryRule{
		{MinAmount: d("0"), MaxAmount: d("500"), Charge: d("50")},
		{MinAmount: d("200"), MaxAmount: d("1000"), Charge: d("30")},
	}
	if got := ResolveDeliveryCharge(rules, d("300")); !got.Equal(d("50")) {
		t.Fatalf("expected narrower rule charge 50, got %s", got)
	}
	reversed := []DeliveryRule{rules[1], rules[0]}
	if got := ResolveDeliveryCharge(reversed, d("300")); !got.Equal(d("50")) {
		t.Fatalf("expected tie-break independent of order, got %s", got)
	}
}

func TestResolveDeliveryChargeEqualUpperBoundKeepsInputOrder(t *testing.T) {
	rules := []DeliveryRule{
		{ID: "a", MinAmount: d("0"), MaxAmount: d("500"), Charge: d("25")},
		{ID: "b", MinAmount: d("100"), MaxAmount: d("500"), Charge: d("15")},
	}
	rule, ok := MatchDeliveryRule(rules, d("300"))
	if !ok || rule.ID != "a" {
		t.Fatalf("expected first listed rule, got %+v (ok=%v)", rule, ok)
	}
}

func TestCoveringDeliveryRulesReportsOverlap(t *testing.T) {
	rules := []DeliveryRule{
		{ID: "wide", MinAmount: d("0"), MaxAmount: d("1000"), Charge: d("30")},
		{ID: "off", MinAmount: d("0"), MaxAmount: d("400"), Charge: d("10"), IsActive: active(false)},
		{ID: "narrow", MinAmount: d("200"), MaxAmount: d("500"), Charge: d("50")},
	}
	got := CoveringDeliveryRules(rules, d("300"))
	if len(got) != 2 || got[0].ID != "wide" || got[1].ID != "narrow" {
		t.Fatalf("unexpected covering rules %+v", got)
	}
	if got := CoveringDeliveryRules(rules, d("100")); len(got) != 1 {
		t.Fatalf("expected single covering rule, got %+v", got)
	}
}

func TestResolveDeliveryChargeNoMatch(t *testing.T) {
	rules := []DeliveryRule{{MinAmount: d("0"), MaxAmount: d("100"), Charge: d("20"), IsActive: active(true)}}
	if got := ResolveDeliveryCharge(rules, d("500")); !got.IsZero() {
		t.Fatalf("expected free delivery, got %s", got)
	}
	if got := ResolveDeliveryCharge(nil, d("500")); !got.IsZero() {
		t.Fatalf("expected free delivery for empty ruleset, got %s", got)
	}
}

func TestResolveDeliveryChargeSkipsInactiveAndHonoursBounds(t *testing.T) {
	rules := []DeliveryRule{
		{MinAmount: d("0"), MaxAmount: d("100"), Charge: d("10"), IsActive: active(false)},
		{MinAmount: d("0"), MaxAmount: d("200"), Charge: d("20")},
	}
	if got := ResolveDeliveryCharge(rules, d("100")); !got.Equal(d("20")) {
		t.Fatalf("expected inactive rule skipped, got %s", got)
	}
	if got := ResolveDeliveryCharge(rules, d("200")); !got.Equal(d("20")) {
		t.Fatalf("expected inclusive upper bound, got %s", got)
	}
	if got := ResolveDeliveryCharge(rules, d("200.01")); !got.IsZero() {
		t.Fatalf("expected no match above the range, got %s", got)
	}
}

func TestComposeTotalFloorsAtZero(t *testing.T) {
	s := ComposeTotal(d("100"), d("150"), d("10"))
	if !s.TotalDiscount.Equal(d("100")) || !s.SubtotalAfterDiscount.IsZero() || !s.GrandTotal.Equal(d("10")) {
		t.Fatalf("unexpected summary %+v", s)
	}
	neg := ComposeTotal(d("-1"), d("-1"), d("-1"))
	for _, v := range []decimal.Decimal{neg.Subtotal, neg.TotalDiscount, neg.SubtotalAfterDiscount, neg.DeliveryCharge, neg.GrandTotal} {
		if v.IsNegative() {
			t.Fatalf("expected non-negative summary, got %+v", neg)
		}
	}
}

func TestComputeEndToEnd(t *testing.T) {
	lines := []CartLine{{ProductRef: "amox", UnitPrice: d("200"), Quantity: 3}}
	catalog := MapCatalog{"amox": {EntrepreneurPercent: d("10"), TraineePercent: d("0")}}
	rules := []DeliveryRule{{ID: "r1", MinAmount: d("0"), MaxAmount: d("1000"), Charge: d("40"), IsActive: active(true)}}

	q, err := Engine{}.Compute(lines, catalog, TierEntrepreneur, rules)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := OrderPriceSummary{
		Subtotal:              d("600"),
		TotalDiscount:         d("60"),
		SubtotalAfterDiscount: d("540"),
		DeliveryCharge:        d("40"),
		GrandTotal:            d("580"),
	}
	if !q.Summary.Equal(want) {
		t.Fatalf("expected %+v, got %+v", want, q.Summary)
	}
	if q.DeliveryRule == nil || q.DeliveryRule.ID != "r1" {
		t.Fatalf("expected matched rule r1, got %+v", q.DeliveryRule)
	}
	if len(q.Lines) != 1 || !q.Lines[0].LineDiscount.Equal(d("60")) {
		t.Fatalf("unexpected priced lines %+v", q.Lines)
	}
}

func TestComputeEmptyCart(t *testing.T) {
	free := ComputeOrderPriceSummary(nil, nil, TierEntrepreneur, []DeliveryRule{{MinAmount: d("1"), MaxAmount: d("100"), Charge: d("9")}})
	if !free.Subtotal.IsZero() || !free.GrandTotal.IsZero() {
		t.Fatalf("expected zero summary, got %+v", free)
	}
	covered := ComputeOrderPriceSummary(nil, nil, TierStandard, []DeliveryRule{{MinAmount: d("0"), MaxAmount: d("100"), Charge: d("9")}})
	if !covered.DeliveryCharge.Equal(d("9")) || !covered.GrandTotal.Equal(d("9")) {
		t.Fatalf("expected delivery rule covering zero to apply, got %+v", covered)
	}
}

func TestComputeUnknownProductGetsNoDiscount(t *testing.T) {
	lines := []CartLine{{ProductRef: "missing", UnitPrice: d("10"), Quantity: 1}}
	s := ComputeOrderPriceSummary(lines, MapCatalog{}, TierEntrepreneur, nil)
	if !s.TotalDiscount.IsZero() || !s.GrandTotal.Equal(d("10")) {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestComputeStrictRejectsMalformedInput(t *testing.T) {
	strict := Engine{Policy: Strict}
	_, err := strict.Compute([]CartLine{{UnitPrice: d("1"), Quantity: 1}, {UnitPrice: d("1"), Quantity: 0}}, nil, TierStandard, nil)
	var malformed *MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
	if malformed.Index != 1 || malformed.Field != "quantity" {
		t.Fatalf("unexpected error detail %+v", malformed)
	}
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("expected errors.Is ErrMalformedInput")
	}

	_, err = strict.Compute(nil, nil, TierStandard, []DeliveryRule{{MinAmount: d("10"), MaxAmount: d("5")}})
	if !errors.As(err, &malformed) || malformed.Kind != "delivery_rule" {
		t.Fatalf("expected delivery rule error, got %v", err)
	}

	lenient, err := Engine{}.Compute([]CartLine{{UnitPrice: d("1"), Quantity: 0}}, nil, TierStandard, nil)
	if err != nil || !lenient.Summary.GrandTotal.IsZero() {
		t.Fatalf("expected lenient zero summary, got %+v, %v", lenient.Summary, err)
	}
}

func TestComputeDeterministicAndInvariant(t *testing.T) {
	lines := []CartLine{
		{ProductRef: "a", UnitPrice: d("19.99"), Quantity: 7},
		{ProductRef: "b", UnitPrice: d("0.01"), Quantity: 1},
		{ProductRef: "c", UnitPrice: d("-3"), Quantity: 2},
		{ProductRef: "d", UnitPrice: d("1234.5"), Quantity: 0},
	}
	catalog := MapCatalog{
		"a": {EntrepreneurPercent: d("33.333"), TraineePercent: d("250")},
		"b": {EntrepreneurPercent: d("-4"), TraineePercent: d("100")},
	}
	rules := []DeliveryRule{
		{MinAmount: d("0"), MaxAmount: d("50"), Charge: d("12")},
		{MinAmount: d("50"), MaxAmount: d("150"), Charge: d("-8")},
		{MinAmount: d("0"), MaxAmount: d("99999"), Charge: d("3"), IsActive: active(false)},
	}
	for _, tier := range []Tier{TierEntrepreneur, TierTraineeEntrepreneur, TierStandard, Tier("x")} {
		first := ComputeOrderPriceSummary(lines, catalog, tier, rules)
		second := ComputeOrderPriceSummary(lines, catalog, tier, rules)
		if !first.Equal(second) {
			t.Fatalf("%s: non-deterministic summary %+v vs %+v", tier, first, second)
		}
		for _, v := range []decimal.Decimal{first.Subtotal, first.TotalDiscount, first.SubtotalAfterDiscount, first.DeliveryCharge, first.GrandTotal} {
			if v.IsNegative() {
				t.Fatalf("%s: negative component in %+v", tier, first)
			}
		}
		if first.TotalDiscount.GreaterThan(first.Subtotal) {
			t.Fatalf("%s: discount exceeds subtotal %+v", tier, first)
		}
		if !first.GrandTotal.Equal(first.SubtotalAfterDiscount.Add(first.DeliveryCharge)) {
			t.Fatalf("%s: grand total identity broken %+v", tier, first)
		}
	}
}

func TestParseTier(t *testing.T) {
	cases := map[string]Tier{
		"entrepreneur":          TierEntrepreneur,
		" Trainee-Entrepreneur": TierTraineeEntrepreneur,
		"trainee entrepreneur":  TierTraineeEntrepreneur,
		"standard":              TierStandard,
		"":                      TierStandard,
		"platinum":              TierStandard,
	}
	for in, want := range cases {
		if got, _ := ParseTier(in); got != want {
			t.Fatalf("ParseTier(%q) = %s, want %s", in, got, want)
		}
	}
	if _, ok := ParseTier("platinum"); ok {
		t.Fatalf("expected unknown tier to report !ok")
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(d("5"), d("0"), d("3")); !got.Equal(d("3")) {
		t.Fatalf("expected 3, got %s", got)
	}
	if got := Clamp(d("-5"), d("0"), d("3")); !got.IsZero() {
		t.Fatalf("expected 0, got %s", got)
	}
	if got := SafeNonNegative(d("-0.01")); !got.IsZero() {
		t.Fatalf("expected 0, got %s", got)
	}
}
