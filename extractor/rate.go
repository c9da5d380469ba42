package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// unitTokens are label fragments the source attaches to the number, removed
// case-insensitively before parsing. Order matters: "cny/kg" before "cny".
var unitTokens = []string{"cny/kg", "cny", "/kg", "rs.", "rs", "inr"}

var currencyReplacer = strings.NewReplacer(
	"₹", "",
	"¥", "",
	"￥", "",
	"$", "",
	"€", "",
	"£", "",
	" ", " ",
)

// numericShape accepts digits with optional comma grouping and an optional
// decimal part. Comma positions are deliberately not validated: the source
// mixes Western ("123,456.50") and Indian ("1,23,456.50") grouping.
var numericShape = regexp.MustCompile(`^\d[\d,]*(\.\d+)?$`)

// NormalizeRate converts raw rate text as displayed on the page into a
// decimal value: "₹ 1,23,456.50" -> 123456.50, "9,351 CNY/kg" -> 9351.
func NormalizeRate(raw string) (decimal.Decimal, error) {
	s := currencyReplacer.Replace(strings.TrimSpace(raw))

	lower := strings.ToLower(s)
	for _, tok := range unitTokens {
		if idx := strings.Index(lower, tok); idx >= 0 {
			s = s[:idx] + s[idx+len(tok):]
			lower = strings.ToLower(s)
		}
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("no numeric content in %q", raw)
	}
	if !numericShape.MatchString(s) {
		return decimal.Decimal{}, fmt.Errorf("rate text %q is not numeric", raw)
	}

	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse rate %q: %w", raw, err)
	}
	return d, nil
}
