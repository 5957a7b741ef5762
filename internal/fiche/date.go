package fiche

import (
	"math"
	"strings"
	"time"
)

// excelEpoch is day zero of the 1900 date system used by xlsx serial dates.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts are the source formats seen in OCR exports, longest first so a
// value with a time-of-day component is not half-parsed by a shorter layout.
var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
}

// toDate converts a source cell value to a day-precision date.
//
// Accepted inputs: time.Time, an Excel serial number (float64), or a string
// in one of dateLayouts. Any time-of-day component is discarded. The second
// return is false when the value cannot be interpreted as a date; callers
// treat that as "absent" per the lenient-degrade policy.
func toDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return truncateDay(x), true
	case float64:
		if x <= 0 || math.IsNaN(x) || math.IsInf(x, 0) {
			return time.Time{}, false
		}
		return truncateDay(excelEpoch.AddDate(0, 0, int(x))), true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return truncateDay(t), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
