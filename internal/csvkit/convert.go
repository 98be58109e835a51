package csvkit

// convert.go turns the messy cell values of enterprise exports into numbers
// and dates:
//   - German and English decimal notation ("1.234,56", "1,234.56", "12,5")
//   - currency symbols and accounting negatives ("(12.00)")
//   - zero-padded IDs ("000123")

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates a number after separators have been normalised.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// leadingZerosRegex captures the digits following leading zeros.
var leadingZerosRegex = regexp.MustCompile(`^0*(\d+)`)

// Common date layouts of the exports, tried in order by ParseDate when no
// layout is given.
var dateLayouts = []string{
	"02.01.2006", "2.1.2006", "2006-01-02", "01/02/2006", "1/2/2006", "2006/01/02", "20060102",
}

// ParseNumber converts a cell to a float, detecting the decimal separator
// per value. The second result is false for empty or non-numeric cells.
// A single dot counts as decimal point, so "1.500" is 1.5; use
// ParseLocaleNumber for files of a known locale.
func ParseNumber(s string) (float64, bool) {
	return ParseLocaleNumber(s, 0)
}

// ParseLocaleNumber converts a cell using decimal as the decimal separator.
// The other one of '.' and ',' is treated as grouping, so with ',' "1.500"
// is 1500. A decimal of 0 detects the separator per value.
func ParseLocaleNumber(s string, decimal rune) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", " ", "", "\u00a0", "", "'", "").Replace(s)
	s = normaliseFor(s, decimal)
	if negative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// normaliseFor rewrites s for a fixed decimal separator, or detects it.
func normaliseFor(s string, decimal rune) string {
	switch decimal {
	case ',':
		return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
	case '.':
		return strings.ReplaceAll(s, ",", "")
	}
	return normaliseSeparators(s)
}

// normaliseSeparators rewrites s so that '.' is the only decimal separator
// and no grouping separators remain.
func normaliseSeparators(s string) string {
	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")

	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			// 1.234,56
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		// 1,234.56
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case dot >= 0 && strings.Count(s, ".") > 1:
		// 1.234.567
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// ParseDate parses s with layout, or with the common export layouts when
// layout is empty.
func ParseDate(s, layout string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if layout != "" {
		t, err := time.Parse(layout, s)
		return t, err == nil
	}

	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StripLeadingZeros returns the digits of s after any leading zeros, or ""
// when s does not start with a digit. "000" becomes "0".
func StripLeadingZeros(s string) string {
	m := leadingZerosRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ""
	}
	return m[1]
}

// FormatFloat renders v with the minimal number of decimals, the way an
// intermediate file should carry it.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
