package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DollarsToCents converts a dollar amount to cents with math.Round to avoid
// truncation bias.
func DollarsToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// CentsToDollars renders cents with exactly two decimal places, the form
// used inside fingerprints.
func CentsToDollars(c int64) string {
	return fmt.Sprintf("%.2f", float64(c)/100)
}

var moneyJunk = regexp.MustCompile(`[$,\s]`)

// Money parses a human-formatted amount ("$1,234.50", "(25.00)") into cents.
// Parenthesized amounts are negative, per statement conventions. Returns
// false when the input is empty or not an amount.
func Money(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = moneyJunk.ReplaceAllString(s, "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return DollarsToCents(v), true
}
