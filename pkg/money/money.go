// Package money formats and converts listing prices.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when an amount cannot be parsed or is
// outside the supported range.
var ErrInvalidAmount = errors.New("invalid amount")

// Amounts carry at most this many digits on each side of the point.
const (
	MaxIntegerDigits  = 15
	MaxFractionDigits = 8
)

var symbols = map[string]string{
	"USD": "$",
	"CAD": "CA$",
	"AUD": "A$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "CN¥",
	"INR": "₹",
	"KRW": "₩",
	"NGN": "₦",
	"BRL": "R$",
	"CHF": "CHF ",
}

// currencies with no minor unit
var zeroDecimal = map[string]bool{
	"JPY": true,
	"KRW": true,
}

// Scale returns the number of fraction digits used for currency.
func Scale(currency string) int32 {
	if zeroDecimal[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// FormatPrice renders amount in currency, e.g. "$1,234.50" or "1,234.50 XYZ".
func FormatPrice(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	scale := Scale(currency)

	negative := amount.IsNegative()
	text := amount.Abs().StringFixed(scale)

	whole, frac, _ := strings.Cut(text, ".")
	grouped := groupThousands(whole)
	if frac != "" {
		grouped += "." + frac
	}

	sign := ""
	if negative && !amount.Round(scale).IsZero() {
		sign = "-"
	}

	if symbol, ok := symbols[currency]; ok {
		return sign + symbol + grouped
	}
	if currency == "" {
		return sign + grouped
	}
	return sign + grouped + " " + currency
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// ParseAmount parses a decimal amount such as "12.50".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !InRange(d) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// InRange reports whether d fits in MaxIntegerDigits whole digits and
// MaxFractionDigits fraction digits. It only inspects the exponent and
// coefficient length, so huge exponents are rejected without expanding them.
func InRange(d decimal.Decimal) bool {
	exp := int64(d.Exponent())
	if exp < -MaxFractionDigits || exp > MaxIntegerDigits {
		return false
	}
	return int64(d.NumDigits())+exp <= MaxIntegerDigits
}

// Convert multiplies amount by rate and rounds to two places.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(2)
}

// IsCurrencyCode reports whether code looks like an ISO 4217 code.
func IsCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
