package fisca

import (
	"fmt"
	"time"
)

// Definition periods understood by the calculation service.
const (
	PeriodDay      = "DAY"
	PeriodWeek     = "WEEK"
	PeriodWeekday  = "WEEKDAY"
	PeriodMonth    = "MONTH"
	PeriodYear     = "YEAR"
	PeriodEternity = "ETERNITY"
)

// DateLayout is the canonical date format exchanged with clients and the
// calculation service.
const DateLayout = "2006-01-02"

var periodDateLayouts = []string{DateLayout, "2006-01", "2006"}

// FormatPeriod renders a date in the representation required by a variable's
// definition period. Unknown definition periods render as the empty string,
// which callers treat as "omit this variable".
func FormatPeriod(definitionPeriod string, date time.Time) string {
	switch definitionPeriod {
	case PeriodDay:
		return date.Format(DateLayout)
	case PeriodWeek:
		year, week := date.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case PeriodWeekday:
		year, week := date.ISOWeek()
		return fmt.Sprintf("%d-W%02d-%d", year, week, isoWeekday(date))
	case PeriodMonth:
		return date.Format("2006-01")
	case PeriodYear:
		return date.Format("2006")
	case PeriodEternity:
		return PeriodEternity
	default:
		return ""
	}
}

// FormatPeriodDate is FormatPeriod over a textual date. An unparseable date
// yields the empty string for date-dependent periods; ETERNITY never depends
// on the date.
func FormatPeriodDate(definitionPeriod, periodDate string) string {
	if definitionPeriod == PeriodEternity {
		return PeriodEternity
	}
	date, ok := parsePeriodDate(periodDate)
	if !ok {
		return ""
	}
	return FormatPeriod(definitionPeriod, date)
}

func parsePeriodDate(s string) (time.Time, bool) {
	for _, layout := range periodDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// isoWeekday maps Go's Sunday-first weekday onto the 1-based ISO scheme
// where Monday is 1 and Sunday is 7.
func isoWeekday(date time.Time) int {
	wd := int(date.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
