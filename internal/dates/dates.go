// Package dates provides calendar-date arithmetic for the ingestion layer:
// resolving (start, end, days) inputs into inclusive date sequences and
// coalescing scattered missing dates into contiguous fetch ranges.
package dates

import (
	"fmt"
	"sort"
	"time"
)

// Date is a calendar date without time-of-day or location. The zero value is
// invalid; construct via New, Parse, or Of.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the date for the given year/month/day.
func New(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// Of returns the calendar date of t in t's location.
func Of(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse parses an ISO-8601 date string (YYYY-MM-DD).
func Parse(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return Of(t), nil
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String returns the ISO-8601 form (YYYY-MM-DD).
func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Of(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is before other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// After reports whether d is after other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// DaysUntil returns the number of calendar days from d to other
// (positive when other is later).
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()) / (24 * time.Hour))
}

// MarshalJSON encodes the date as a JSON string in ISO-8601 form.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes an ISO-8601 JSON string.
func (d *Date) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid date JSON: %s", data)
	}
	parsed, err := Parse(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Range is an inclusive span of calendar dates.
type Range struct {
	Start Date
	End   Date
}

// Dates returns every date in the range in ascending order.
func (r Range) Dates() []Date {
	n := r.Start.DaysUntil(r.End)
	if n < 0 {
		return nil
	}
	out := make([]Date, 0, n+1)
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// ResolveRange computes the inclusive, ascending date sequence for the given
// inputs. With both start and end it spans the two; with only start it covers
// days dates beginning there; with only end it covers days dates ending
// there; with neither it covers days dates ending at today.
func ResolveRange(start, end *Date, days int, today Date) []Date {
	switch {
	case start != nil && end != nil:
		return Range{Start: *start, End: *end}.Dates()
	case start != nil:
		return Range{Start: *start, End: start.AddDays(days - 1)}.Dates()
	case end != nil:
		return Range{Start: end.AddDays(-(days - 1)), End: *end}.Dates()
	default:
		return Range{Start: today.AddDays(-(days - 1)), End: today}.Dates()
	}
}

// CoalesceContiguous merges calendar-adjacent dates into the minimal set of
// inclusive ranges, ascending. Duplicates are tolerated. An empty input
// yields nil; a lone date yields the degenerate range (d, d).
func CoalesceContiguous(dates []Date) []Range {
	if len(dates) == 0 {
		return nil
	}

	sorted := make([]Date, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var ranges []Range
	cur := Range{Start: sorted[0], End: sorted[0]}
	for _, d := range sorted[1:] {
		switch cur.End.DaysUntil(d) {
		case 0:
			// duplicate
		case 1:
			cur.End = d
		default:
			ranges = append(ranges, cur)
			cur = Range{Start: d, End: d}
		}
	}
	return append(ranges, cur)
}
