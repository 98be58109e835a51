package csvkit

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NumberFormat renders aggregated values in result files.
type NumberFormat struct {
	printer *message.Printer
}

// NewNumberFormat creates a formatter for a locale tag such as "DE" or "en".
// An empty or unknown tag falls back to plain Go formatting.
func NewNumberFormat(locale string) NumberFormat {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return NumberFormat{}
	}
	tag, err := language.Parse(strings.ToLower(locale))
	if err != nil {
		return NumberFormat{}
	}
	return NumberFormat{printer: message.NewPrinter(tag)}
}

// DecimalSeparator returns the decimal separator of the locale, or 0 when
// the format has no locale.
func (f NumberFormat) DecimalSeparator() rune {
	if f.printer == nil {
		return 0
	}
	for _, r := range f.printer.Sprint(number.Decimal(1.5, number.NoSeparator())) {
		if r < '0' || r > '9' {
			return r
		}
	}
	return 0
}

// Format renders integers without decimals and everything else with two.
func (f NumberFormat) Format(v float64) string {
	integral := v == math.Trunc(v) && !math.IsInf(v, 0)

	if f.printer == nil {
		if integral {
			return FormatFloat(v)
		}
		return FormatFloat(math.Round(v*100) / 100)
	}

	if integral {
		return f.printer.Sprint(number.Decimal(v, number.NoSeparator(), number.MaxFractionDigits(0)))
	}
	return f.printer.Sprint(number.Decimal(v,
		number.NoSeparator(),
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
}
