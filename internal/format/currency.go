package format

import (
	"strings"

	"github.com/shopspring/decimal"

	"btc-price-tracker/internal/config"
)

type Placement int

const (
	Suffix Placement = iota
	Prefix
)

// Rule decorates an amount with a currency symbol.
type Rule struct {
	Symbol    string
	Placement Placement
}

// Table maps lower-case currency codes to their rule. Codes without an entry
// render with the upper-cased code as a suffix.
type Table map[string]Rule

// DefaultTable returns the built-in rules.
func DefaultTable() Table {
	return Table{
		"usd": {Symbol: "$", Placement: Prefix},
		"nok": {Symbol: "kr", Placement: Suffix},
	}
}

var defaultTable = DefaultTable()

// NewTable returns the defaults extended (or overridden) by configured
// formats.
func NewTable(overrides map[string]config.Format) Table {
	t := DefaultTable()
	for code, f := range overrides {
		p := Suffix
		if strings.EqualFold(f.Placement, "prefix") {
			p = Prefix
		}
		sym := f.Symbol
		if sym == "" {
			sym = strings.ToUpper(code)
		}
		t[strings.ToLower(code)] = Rule{Symbol: sym, Placement: p}
	}
	return t
}

// Rule returns the rule for code, falling back to the upper-cased code.
func (t Table) Rule(code string) Rule {
	c := strings.ToLower(strings.TrimSpace(code))
	if r, ok := t[c]; ok {
		return r
	}
	return Rule{Symbol: strings.ToUpper(c), Placement: Suffix}
}

// Format renders amount with two decimals, thousands separators and the
// currency symbol for code. The sign always leads: -$1.00, -1.00 kr.
func (t Table) Format(amount decimal.Decimal, code string) string {
	r := t.Rule(code)
	num := Number(amount.Abs())
	sign := ""
	if amount.Round(2).IsNegative() {
		sign = "-"
	}
	if r.Placement == Prefix {
		return sign + r.Symbol + num
	}
	return sign + num + " " + r.Symbol
}

// FormatCurrency formats amount using the built-in table.
func FormatCurrency(amount decimal.Decimal, code string) string {
	return defaultTable.Format(amount, code)
}

// Number renders a value with two decimals and comma thousands separators,
// e.g. 1234567.891 -> 1,234,567.89.
func Number(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg && strings.Trim(intPart+frac, "0") != "" {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// Percent renders a percentage value such as 1.2345 as 1.23%.
func Percent(d decimal.Decimal) string {
	return Number(d) + "%"
}
