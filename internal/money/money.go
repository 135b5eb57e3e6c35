// Package money renders engine amounts for display. Amounts are rounded only
// here, at the presentation boundary, half away from zero to the currency's
// minor unit.
package money

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter formats decimal amounts in one currency and locale.
type Formatter struct {
	unit    currency.Unit
	tag     language.Tag
	scale   int32
	printer *message.Printer
	symbol  string
	point   string
}

// NewFormatter parses an ISO 4217 code and a BCP 47 locale.
func NewFormatter(code, locale string) (*Formatter, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("money: currency %q: %w", code, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("money: locale %q: %w", locale, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	printer := message.NewPrinter(tag)
	return &Formatter{
		unit:    unit,
		tag:     tag,
		scale:   int32(scale),
		printer: printer,
		symbol:  printer.Sprint(currency.Symbol(unit)),
		point:   decimalPoint(printer),
	}, nil
}

// decimalPoint extracts the locale's decimal separator from a sample rendering.
func decimalPoint(p *message.Printer) string {
	sample := p.Sprint(number.Decimal(1.5, number.MinFractionDigits(1)))
	sep := strings.TrimSuffix(strings.TrimPrefix(sample, "1"), "5")
	if sep == "" || sep == sample {
		return "."
	}
	return sep
}

// Code returns the ISO currency code.
func (f *Formatter) Code() string { return f.unit.String() }

// Round rounds to the currency's minor unit.
func (f *Formatter) Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(f.scale)
}

// Fixed renders the rounded amount with exactly the minor-unit digits, e.g. "12.50".
func (f *Formatter) Fixed(v decimal.Decimal) string {
	return v.StringFixed(f.scale)
}

// Display renders the amount with locale grouping and the currency symbol.
// Digits come from the rounded decimal; only the integer part goes through the
// locale printer, as an exact int64.
func (f *Formatter) Display(v decimal.Decimal) string {
	r := f.Round(v)
	sign := ""
	if r.IsNegative() {
		sign, r = "-", r.Neg()
	}
	whole, frac, _ := strings.Cut(r.StringFixed(f.scale), ".")
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		whole = f.printer.Sprint(number.Decimal(n))
	}
	out := sign + f.symbol + whole
	if frac != "" {
		out += f.point + frac
	}
	return out
}

// Amount is the wire shape of a displayed amount.
type Amount struct {
	Value     string `json:"value"`
	Formatted string `json:"formatted"`
}

// Amount builds the wire shape for v.
func (f *Formatter) Amount(v decimal.Decimal) Amount {
	return Amount{Value: f.Fixed(v), Formatted: f.Display(v)}
}
