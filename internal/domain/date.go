package domain

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the DD/MM/YYYY layout used by the report sheets.
const DateLayout = "02/01/2006"

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	DateLayout,
	"2/1/2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02-01-2006",
	"02-01-06",
}

// excelEpoch is day zero of the 1900 spreadsheet date system.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate parses an incident date in any of the layouts found in report
// workbooks, including bare spreadsheet serial numbers. Returns false for
// empty or unparseable input ("no date available").
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nat") || strings.EqualFold(s, "nan") {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 2958466 {
		return DateOf(excelEpoch.Add(time.Duration(serial * float64(24*time.Hour)))), true
	}
	return time.Time{}, false
}

// FormatDate renders a date as DD/MM/YYYY, or "" for the zero date.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// DateOf truncates t to midnight UTC of its calendar date.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysSince returns the whole calendar days from start to ref, or nil when
// start is unknown.
func DaysSince(start, ref time.Time) *int {
	if start.IsZero() {
		return nil
	}
	days := int(DateOf(ref).Sub(DateOf(start)).Hours() / 24)
	return &days
}
