// Package timeleap computes the date anchors reports bucket dates by:
// today, and the same calendar day a number of years back.
package timeleap

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lestrrat-go/strftime"
)

// Date patterns used by the exports and the result files.
const (
	GermanDate = "%d.%m.%Y"
	ISODate    = "%Y-%m-%d"
)

// TimeLeap anchors dates on the day the clock reports.
type TimeLeap struct {
	today time.Time
}

// New captures today from clock. All anchors are midnight UTC.
func New(clock clockwork.Clock) TimeLeap {
	now := clock.Now()
	return TimeLeap{today: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)}
}

// Today returns the anchor day.
func (t TimeLeap) Today() time.Time { return t.today }

// YearsBack returns the same calendar day n years before today. The 29th of
// February falls back to the 28th.
func (t TimeLeap) YearsBack(n int) time.Time {
	d := time.Date(t.today.Year()-n, t.today.Month(), t.today.Day(), 0, 0, 0, 0, time.UTC)
	if d.Month() != t.today.Month() {
		d = d.AddDate(0, 0, -d.Day())
	}
	return d
}

// B1Y is one year back.
func (t TimeLeap) B1Y() time.Time { return t.YearsBack(1) }

// B2Y is two years back.
func (t TimeLeap) B2Y() time.Time { return t.YearsBack(2) }

// B7Y is seven years back.
func (t TimeLeap) B7Y() time.Time { return t.YearsBack(7) }

// B10Y is ten years back.
func (t TimeLeap) B10Y() time.Time { return t.YearsBack(10) }

// NextDay returns d plus one day.
func NextDay(d time.Time) time.Time { return d.AddDate(0, 0, 1) }

// Format renders d with a strftime pattern such as GermanDate.
func Format(pattern string, d time.Time) (string, error) {
	s, err := strftime.Format(pattern, d)
	if err != nil {
		return "", fmt.Errorf("format date with %q: %w", pattern, err)
	}
	return s, nil
}

// Layout converts the strftime patterns used in this repo to Go layouts so
// that the same pattern parses cells. The layouts accept unpadded days and
// months.
func Layout(pattern string) (string, error) {
	switch pattern {
	case GermanDate:
		return "2.1.2006", nil
	case ISODate:
		return "2006-1-2", nil
	case "%d/%m/%Y":
		return "2/1/2006", nil
	case "%m/%d/%Y":
		return "1/2/2006", nil
	}
	return "", fmt.Errorf("unsupported date pattern %q", pattern)
}
