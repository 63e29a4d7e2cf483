package extractor

import (
	"strconv"
	"strings"
)

// ParseCount normalizes a human-formatted counter into an integer. Thousands
// separators are stripped and a trailing k/m unit scales the value ("1,234" is
// 1234, "128.67K" is 128670, "1.5M" is 1500000). Unsuffixed values must be
// plain integers. Anything unparseable counts as zero.
func ParseCount(s string) int {
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))

	shift := 0
	switch {
	case strings.HasSuffix(s, "k"):
		shift = 3
		s = strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		shift = 6
		s = strings.TrimSuffix(s, "m")
	}

	if shift == 0 {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return scaleCount(s, shift)
}

// scaleCount shifts the decimal point of a non-negative mantissa right by
// shift places. The arithmetic stays on digit strings, keeping the result
// exact ("128.67" by 3 is 128670); fractional digits past the unit's
// resolution truncate ("1.2345" by 3 is 1234).
func scaleCount(s string, shift int) int {
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return 0
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return 0
	}
	if len(fracPart) > shift {
		fracPart = fracPart[:shift]
	}
	n, err := strconv.Atoi(intPart + fracPart + strings.Repeat("0", shift-len(fracPart)))
	if err != nil {
		return 0
	}
	return n
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
