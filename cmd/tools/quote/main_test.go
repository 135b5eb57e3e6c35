package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/pricing"
)

func TestRunScenarioJSON(t *testing.T) {
	f, err := os.Open("testdata/entrepreneur.yaml")
	require.NoError(t, err)
	defer f.Close()

	var out bytes.Buffer
	require.NoError(t, run(f, &out, options{json: true}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, "ENTREPRENEUR", got["tier"])
	require.Equal(t, "INR", got["currency"])
	require.Equal(t, "600.00", got["subtotal"])
	require.Equal(t, "60.00", got["totalDiscount"])
	require.Equal(t, "540.00", got["subtotalAfterDiscount"])
	require.Equal(t, "40.00", got["deliveryCharge"])
	require.Equal(t, "580.00", got["grandTotal"])
	require.Equal(t, "local", got["deliveryRuleId"])
}

func TestRunScenarioTable(t *testing.T) {
	f, err := os.Open("testdata/entrepreneur.yaml")
	require.NoError(t, err)
	defer f.Close()

	var out bytes.Buffer
	require.NoError(t, run(f, &out, options{}))
	text := out.String()
	require.Contains(t, text, "paracetamol-500")
	require.Contains(t, text, "grand total")
	require.Contains(t, text, "580.00")
}

func TestRunStrictRejectsMalformedLine(t *testing.T) {
	in := strings.NewReader("tier: TRAINEE_ENTREPRENEUR\nitems:\n  - productId: a\n    price: 10\n    qty: 0\n")

	err := run(in, &bytes.Buffer{}, options{strict: true})
	var malformed *pricing.MalformedInputError
	require.True(t, errors.As(err, &malformed))

	in = strings.NewReader("tier: TRAINEE_ENTREPRENEUR\nitems:\n  - productId: a\n    price: 10\n    qty: 0\n")
	var out bytes.Buffer
	require.NoError(t, run(in, &out, options{json: true}))
	require.Contains(t, out.String(), `"grandTotal": "0.00"`)
}

func TestRunUnknownTierFallsBackToStandard(t *testing.T) {
	in := strings.NewReader("tier: PLATINUM\nitems:\n  - id: a\n    unitPrice: '50'\n    quantity: 2\n    discounts:\n      entrepreneurDiscountPercent: 20\n")

	var out bytes.Buffer
	require.NoError(t, run(in, &out, options{json: true}))
	require.Contains(t, out.String(), `unknown tier "PLATINUM"`)
	require.Contains(t, out.String(), `"totalDiscount": "0.00"`)
	require.Contains(t, out.String(), `"grandTotal": "100.00"`)
}
