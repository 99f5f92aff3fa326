package models

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatMinorUnits renders cents as a two-decimal amount, e.g. 30 -> "0.30".
func FormatMinorUnits(v int) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// ParseMinorUnits parses a decimal amount with at most two fraction digits into cents.
func ParseMinorUnits(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("money: empty amount")
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("money: too many decimals in %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	units, err := strconv.Atoi(whole)
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", s, err)
	}
	cents, err := strconv.Atoi(frac)
	if err != nil || cents < 0 {
		return 0, fmt.Errorf("money: parse %q: invalid fraction", s)
	}
	total := units*100 + cents
	if neg {
		total = -total
	}
	return total, nil
}
