// Command quote prices a YAML scenario offline and prints the order summary.
//
//	quote -f scenario.yaml [-json] [-strict]
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/backend-apotek/internal/money"
	"github.com/noah-isme/backend-apotek/internal/normalize"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

// scenario is the on-disk input. Items and rules accept every upstream field alias.
type scenario struct {
	Tier     string           `yaml:"tier"`
	Strict   bool             `yaml:"strict"`
	Currency string           `yaml:"currency"`
	Locale   string           `yaml:"locale"`
	Items    []map[string]any `yaml:"items"`
	Rules    []map[string]any `yaml:"deliveryRules"`
}

type options struct {
	path   string
	json   bool
	strict bool
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var opts options
	fs := flag.NewFlagSet("quote", flag.ExitOnError)
	fs.StringVar(&opts.path, "f", "", "scenario YAML file (- for stdin)")
	fs.BoolVar(&opts.json, "json", false, "print the result as JSON")
	fs.BoolVar(&opts.strict, "strict", false, "reject malformed input instead of coercing it")
	_ = fs.Parse(os.Args[1:])

	if opts.path == "" {
		fs.Usage()
		os.Exit(2)
	}
	in, err := openInput(opts.path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open scenario")
	}
	defer in.Close()

	if err := run(in, os.Stdout, opts); err != nil {
		var malformed *pricing.MalformedInputError
		if errors.As(err, &malformed) {
			logger.Fatal().Str("kind", malformed.Kind).Int("index", malformed.Index).Str("field", malformed.Field).Msg(malformed.Reason)
		}
		logger.Fatal().Err(err).Msg("quote failed")
	}
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func run(in io.Reader, out io.Writer, opts options) error {
	var sc scenario
	if err := yaml.NewDecoder(in).Decode(&sc); err != nil {
		return fmt.Errorf("decode scenario: %w", err)
	}

	policy := pricing.Lenient
	if sc.Strict || opts.strict {
		policy = pricing.Strict
	}
	tier, ok := pricing.ParseTier(sc.Tier)
	if !ok && sc.Tier != "" {
		fmt.Fprintf(out, "warning: unknown tier %q priced as %s\n", sc.Tier, tier)
	}

	lines, profiles, err := normalize.CartLines(sc.Items, policy)
	if err != nil {
		return err
	}
	rules, err := normalize.DeliveryRules(sc.Rules, policy)
	if err != nil {
		return err
	}
	quote, err := pricing.Engine{Policy: policy}.Compute(lines, profiles, tier, rules)
	if err != nil {
		return err
	}

	formatter, err := money.NewFormatter(valueOr(sc.Currency, "INR"), valueOr(sc.Locale, "en-IN"))
	if err != nil {
		return err
	}
	if opts.json {
		return writeJSON(out, tier, quote, formatter)
	}
	return writeTable(out, tier, quote, formatter)
}

func writeTable(out io.Writer, tier pricing.Tier, q pricing.Quote, f *money.Formatter) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "tier\t%s\t\n", tier)
	fmt.Fprintln(tw, "product\tqty\tunit\tsubtotal\tpercent\tdiscount\t")
	for _, pl := range q.Lines {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s%%\t%s\t\n",
			pl.Line.ProductRef, pl.Line.Quantity,
			f.Display(pl.Line.UnitPrice), f.Display(pl.LineSubtotal),
			pl.ApplicablePercent.String(), f.Display(pl.LineDiscount))
	}
	s := q.Summary
	fmt.Fprintf(tw, "subtotal\t%s\t\n", f.Display(s.Subtotal))
	fmt.Fprintf(tw, "discount\t%s\t\n", f.Display(s.TotalDiscount))
	fmt.Fprintf(tw, "after discount\t%s\t\n", f.Display(s.SubtotalAfterDiscount))
	fmt.Fprintf(tw, "delivery\t%s\t\n", f.Display(s.DeliveryCharge))
	fmt.Fprintf(tw, "grand total\t%s\t\n", f.Display(s.GrandTotal))
	if q.DeliveryRule != nil && q.DeliveryRule.ID != "" {
		fmt.Fprintf(tw, "delivery rule\t%s\t\n", q.DeliveryRule.ID)
	}
	return tw.Flush()
}

func writeJSON(out io.Writer, tier pricing.Tier, q pricing.Quote, f *money.Formatter) error {
	s := q.Summary
	body := map[string]any{
		"tier":                  tier,
		"currency":              f.Code(),
		"subtotal":              f.Fixed(f.Round(s.Subtotal)),
		"totalDiscount":         f.Fixed(f.Round(s.TotalDiscount)),
		"subtotalAfterDiscount": f.Fixed(f.Round(s.SubtotalAfterDiscount)),
		"deliveryCharge":        f.Fixed(f.Round(s.DeliveryCharge)),
		"grandTotal":            f.Fixed(f.Round(s.GrandTotal)),
	}
	if q.DeliveryRule != nil {
		body["deliveryRuleId"] = q.DeliveryRule.ID
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(body)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
