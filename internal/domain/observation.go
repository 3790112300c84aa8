package domain

import (
	"fmt"
	"sort"
	"time"
)

// monthLayout is the YYYYMM wire format the statistics API uses
// (WRTTIME_IDTFR_ID for the monthly cycle).
const monthLayout = "200601"

// Month is a calendar month, the finest date granularity the index has.
type Month struct {
	Year int
	Mon  time.Month
}

// ParseMonth parses a YYYYMM string such as "202201".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Mon: t.Month()}, nil
}

// MonthOf truncates a time to its calendar month.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Mon: t.Month()}
}

// String formats the month as YYYYMM.
func (m Month) String() string {
	return m.Time().Format(monthLayout)
}

// Time returns midnight UTC on the first day of the month.
func (m Month) Time() time.Time {
	return time.Date(m.Year, m.Mon, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	t := m.Time().AddDate(0, 1, 0)
	return Month{Year: t.Year(), Mon: t.Month()}
}

// Before reports whether m is strictly earlier than other.
func (m Month) Before(other Month) bool {
	return m.Time().Before(other.Time())
}

// DistanceTo returns the absolute distance between two months.
func (m Month) DistanceTo(other Month) time.Duration {
	d := other.Time().Sub(m.Time())
	if d < 0 {
		return -d
	}
	return d
}

// MonthRange enumerates the closed range [start, end]. Returns nil when
// start is after end.
func MonthRange(start, end Month) []Month {
	if end.Before(start) {
		return nil
	}
	var out []Month
	for m := start; !end.Before(m); m = m.Next() {
		out = append(out, m)
	}
	return out
}

// Observation is one index reading for one region and one month.
// Observations are never mutated after creation.
type Observation struct {
	Region     RegionCode
	Month      Month
	IndexValue float64
}

// MarshalJSON flattens the month into its YYYYMM wire form.
func (o Observation) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"region_code":%q,"month":%q,"index_value":%g}`,
		o.Region, o.Month.String(), o.IndexValue)), nil
}

// TimeSeries is a date-ordered collection of observations sharing a region.
// The collector sorts it once; downstream stages treat it as read-only.
type TimeSeries []Observation

// Sort orders the series by month ascending, keeping the original order of
// equal-month observations.
func (s TimeSeries) Sort() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Month.Before(s[j].Month)
	})
}
