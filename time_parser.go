package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateRange is an inclusive range of calendar dates (UTC midnight).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// YearRange covers January 1st to December 31st of year.
func YearRange(year int) DateRange {
	return DateRange{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// NewDateRange parses two YYYY-MM-DD dates. An empty start or end falls back to
// the first or last day of the year containing now.
func NewDateRange(start, end string, now time.Time) (DateRange, error) {
	r := YearRange(now.Year())

	if start != "" {
		t, err := ParseRangeDate(start)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid start date: %w", err)
		}
		r.Start = t
	}

	if end != "" {
		t, err := ParseRangeDate(end)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid end date: %w", err)
		}
		r.End = t
	}

	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("start date %s is after end date %s",
			r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}

	return r, nil
}

// ParseRangeDate parses YYYY-MM-DD (or YYYYMMDD) into a UTC date.
func ParseRangeDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}

	if t, err := time.Parse("20060102", s); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid date format '%s'. Use format: YYYY-MM-DD (e.g., 2024-01-31)", s)
}

// Contains reports whether d lies within the range, bounds included.
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// ContainsYear reports whether any day of year lies within the range.
func (r DateRange) ContainsYear(year int) bool {
	return r.Start.Year() <= year && year <= r.End.Year()
}

func (r DateRange) String() string {
	return r.Start.Format("2006-01-02") + " to " + r.End.Format("2006-01-02")
}

// ParseOrderDate parses the shop's "D. Monthname YYYY" date text, e.g.
// "03. Januar 2024", using the locale's month names.
func ParseOrderDate(text string, loc *SiteLocale) (time.Time, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 || !strings.HasSuffix(fields[0], ".") {
		return time.Time{}, fmt.Errorf("unrecognized date text %q", text)
	}

	day, err := strconv.Atoi(strings.TrimSuffix(fields[0], "."))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day in %q", text)
	}

	month := loc.Month(fields[1])
	if month == 0 {
		return time.Time{}, fmt.Errorf("unknown month %q", fields[1])
	}

	if len(fields[2]) != 4 {
		return time.Time{}, fmt.Errorf("invalid year in %q", text)
	}
	year, err := strconv.Atoi(fields[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid year in %q", text)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (31. Februar); reject instead.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("day out of range in %q", text)
	}

	return t, nil
}
