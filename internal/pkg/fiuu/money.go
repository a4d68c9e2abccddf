package fiuu

import (
	"fmt"
	"strconv"
	"strings"
)

// ToCents parses a gateway decimal amount string ("103.25") into integer
// minor units. The conversion must round-trip exactly with FormatCents for
// every representable amount.
func ToCents(amount string) (int64, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid amount %q: negative", amount)
	}
	return int64(v*100 + 0.5), nil
}

// FormatCents renders minor units as the gateway's two-decimal wire format.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
