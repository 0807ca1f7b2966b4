package inventory

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeText lowercases and trims s. Blank input becomes UnknownValue.
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return UnknownValue
	}
	return s
}

// ParseDecimal reads a numeric cell. Blank or non-numeric input yields
// decimal.Zero and ok=false.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseQuantity reads a quantity cell as a whole number. Fractions are
// truncated. Non-numeric input yields 0 and ok=false.
func ParseQuantity(s string) (int64, bool) {
	d, ok := ParseDecimal(s)
	if !ok {
		return 0, false
	}
	whole := d.Truncate(0)
	if !whole.BigInt().IsInt64() {
		return 0, false
	}
	return whole.IntPart(), true
}
