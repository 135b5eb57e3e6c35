// Package normalize maps loosely shaped upstream payloads (storefront JSON,
// YAML scenarios) onto the canonical pricing types. Field names drifted over
// time on the storefront, so every concept accepts a short list of aliases.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/pricing"
)

var (
	refKeys        = []string{"productRef", "productId", "product_id", "id"}
	qtyKeys        = []string{"qty", "quantity", "cartQty"}
	priceKeys      = []string{"unitPrice", "unit_price", "price", "salePrice"}
	profileKeys    = []string{"profile", "discountProfile", "discounts"}
	entrepreneurKs = []string{"entrepreneurDiscountPercent", "entrepreneur_discount_percent", "entrepreneurDiscount"}
	traineeKeys    = []string{"traineeDiscountPercent", "trainee_discount_percent", "traineeDiscount"}

	ruleIDKeys = []string{"id", "ruleId", "_id"}
	minKeys    = []string{"minAmount", "min_amount", "min"}
	maxKeys    = []string{"maxAmount", "max_amount", "max"}
	chargeKeys = []string{"charge", "deliveryCharge", "delivery_charge", "amount"}
	activeKeys = []string{"isActive", "is_active", "active"}

	errNotFinite = errors.New("must be a finite number")
)

const (
	lineKind = "cart_line"
	ruleKind = "delivery_rule"
)

// CartLines converts raw cart entries. References that parse as UUIDs are
// rewritten in canonical form. Profiles embedded in the entries are returned as
// a catalog keyed by product reference. Under pricing.Strict the first
// unparsable or out-of-shape value aborts with *pricing.MalformedInputError;
// otherwise it is coerced to zero. That includes fractional quantities and
// quantities above math.MaxInt32, which are never rounded or truncated.
func CartLines(items []map[string]any, policy pricing.Policy) ([]pricing.CartLine, pricing.MapCatalog, error) {
	lines := make([]pricing.CartLine, 0, len(items))
	catalog := pricing.MapCatalog{}
	for i, item := range items {
		ref := firstString(item, refKeys)
		if ref == "" {
			ref = "line-" + strconv.Itoa(i)
		} else if id, err := uuid.Parse(ref); err == nil {
			ref = id.String()
		}

		price, err := number(item, priceKeys)
		if err != nil {
			if policy == pricing.Strict {
				return nil, nil, malformed(lineKind, i, "unitPrice", err.Error())
			}
			price = decimal.Zero
		}

		qtyRaw, err := number(item, qtyKeys)
		if err != nil {
			if policy == pricing.Strict {
				return nil, nil, malformed(lineKind, i, "quantity", err.Error())
			}
			qtyRaw = decimal.Zero
		}
		if reason := quantityProblem(qtyRaw); reason != "" {
			if policy == pricing.Strict {
				return nil, nil, malformed(lineKind, i, "quantity", reason)
			}
			qtyRaw = decimal.Zero
		}
		qty := int(qtyRaw.IntPart())

		line := pricing.CartLine{ProductRef: ref, UnitPrice: price, Quantity: qty}
		if policy == pricing.Strict {
			if err := pricing.ValidateLine(i, line); err != nil {
				return nil, nil, err
			}
		}
		lines = append(lines, line)

		if profile, ok := embeddedProfile(item); ok {
			catalog[ref] = profile
		}
	}
	return lines, catalog, nil
}

var maxQuantity = decimal.NewFromInt(math.MaxInt32)

// quantityProblem reports why q cannot be used as a line quantity as is.
// Values below 1 are left to pricing.ValidateLine.
func quantityProblem(q decimal.Decimal) string {
	switch {
	case !q.Equal(q.Truncate(0)):
		return "must be a whole number"
	case q.Abs().GreaterThan(maxQuantity):
		return "out of range"
	default:
		return ""
	}
}

// DeliveryRules converts raw rule entries. A missing active flag means active.
func DeliveryRules(items []map[string]any, policy pricing.Policy) ([]pricing.DeliveryRule, error) {
	rules := make([]pricing.DeliveryRule, 0, len(items))
	for i, item := range items {
		rule := pricing.DeliveryRule{ID: firstString(item, ruleIDKeys)}
		fields := []struct {
			name string
			keys []string
			dst  *decimal.Decimal
		}{
			{"minAmount", minKeys, &rule.MinAmount},
			{"maxAmount", maxKeys, &rule.MaxAmount},
			{"charge", chargeKeys, &rule.Charge},
		}
		for _, f := range fields {
			v, err := number(item, f.keys)
			if err != nil {
				if policy == pricing.Strict {
					return nil, malformed(ruleKind, i, f.name, err.Error())
				}
				v = decimal.Zero
			}
			*f.dst = v
		}
		if flag, ok := boolean(item, activeKeys); ok {
			rule.IsActive = &flag
		}
		if policy == pricing.Strict {
			if err := pricing.ValidateRule(i, rule); err != nil {
				return nil, err
			}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Profile reads a discount profile from a flat map.
func Profile(m map[string]any) pricing.DiscountProfile {
	ent, err := number(m, entrepreneurKs)
	if err != nil {
		ent = decimal.Zero
	}
	trainee, err := number(m, traineeKeys)
	if err != nil {
		trainee = decimal.Zero
	}
	return pricing.DiscountProfile{EntrepreneurPercent: ent, TraineePercent: trainee}.Clamped()
}

func embeddedProfile(item map[string]any) (pricing.DiscountProfile, bool) {
	for _, k := range profileKeys {
		if nested, ok := item[k].(map[string]any); ok {
			return Profile(nested), true
		}
	}
	if _, ok := lookup(item, entrepreneurKs); ok {
		return Profile(item), true
	}
	if _, ok := lookup(item, traineeKeys); ok {
		return Profile(item), true
	}
	return pricing.DiscountProfile{}, false
}

func malformed(kind string, index int, field, reason string) error {
	return &pricing.MalformedInputError{Kind: kind, Index: index, Field: field, Reason: reason}
}

func lookup(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func firstString(m map[string]any, keys []string) string {
	v, ok := lookup(m, keys)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// number reads a decimal from the first present key. Absent keys read as zero.
func number(m map[string]any, keys []string) (decimal.Decimal, error) {
	v, ok := lookup(m, keys)
	if !ok {
		return decimal.Zero, nil
	}
	switch t := v.(type) {
	case json.Number:
		return parseDecimal(t.String())
	case string:
		return parseDecimal(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, errNotFinite
		}
		return decimal.NewFromFloat(t), nil
	case float32:
		f := float64(t)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, errNotFinite
		}
		return decimal.NewFromFloat32(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case int32:
		return decimal.NewFromInt32(t), nil
	case uint64:
		return parseDecimal(strconv.FormatUint(t, 10))
	case decimal.Decimal:
		return t, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported number type %T", v)
	}
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, errNotFinite
	}
	return d, nil
}

func boolean(m map[string]any, keys []string) (bool, bool) {
	v, ok := lookup(m, keys)
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "t", "true", "yes", "on":
			return true, true
		case "0", "f", "false", "no", "off":
			return false, true
		}
	case json.Number:
		return t.String() != "0", true
	case float64:
		return t != 0, true
	case int:
		return t != 0, true
	}
	return false, false
}
