package pricing

import (
	"errors"
	"fmt"
)

// ErrMalformedInput matches any *MalformedInputError via errors.Is.
var ErrMalformedInput = errors.New("pricing: malformed input")

// MalformedInputError reports the first input that failed shape validation
// under the Strict policy.
type MalformedInputError struct {
	Kind   string
	Index  int
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *MalformedInputError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("pricing: malformed %s[%d].%s: %s", e.Kind, e.Index, e.Field, e.Reason)
}

// Is lets errors.Is match against ErrMalformedInput.
func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

const (
	kindCartLine     = "cart_line"
	kindDeliveryRule = "delivery_rule"
)

// ValidateLine checks the shape of a cart line.
func ValidateLine(index int, line CartLine) error {
	if line.Quantity < 1 {
		return &MalformedInputError{Kind: kindCartLine, Index: index, Field: "quantity", Reason: "must be at least 1"}
	}
	if line.UnitPrice.IsNegative() {
		return &MalformedInputError{Kind: kindCartLine, Index: index, Field: "unitPrice", Reason: "must not be negative"}
	}
	return nil
}

// ValidateRule checks the shape of a delivery rule.
func ValidateRule(index int, rule DeliveryRule) error {
	switch {
	case rule.MinAmount.IsNegative():
		return &MalformedInputError{Kind: kindDeliveryRule, Index: index, Field: "minAmount", Reason: "must not be negative"}
	case rule.MaxAmount.LessThan(rule.MinAmount):
		return &MalformedInputError{Kind: kindDeliveryRule, Index: index, Field: "maxAmount", Reason: "must not be below minAmount"}
	case rule.Charge.IsNegative():
		return &MalformedInputError{Kind: kindDeliveryRule, Index: index, Field: "charge", Reason: "must not be negative"}
	}
	return nil
}
