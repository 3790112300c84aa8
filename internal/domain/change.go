package domain

import (
	"github.com/shopspring/decimal"
)

// ChangeMode selects how regions with missing data are handled.
type ChangeMode int

const (
	// ModeDropMissing excludes a region from the result set when it has no
	// observations to match against the requested dates.
	ModeDropMissing ChangeMode = iota
	// ModeZeroFill substitutes a zero index value for regions without data,
	// which yields a 0% change row instead of an absent one.
	ModeZeroFill
)

// ChangeResult is the period-over-period change for one region.
// StartMonth/EndMonth are the actually-selected observation dates, which may
// differ from the requested ones when the series has gaps.
type ChangeResult struct {
	Region        RegionCode `json:"region_code"`
	Name          RegionName `json:"region_name"`
	StartMonth    string     `json:"start_month"`
	EndMonth      string     `json:"end_month"`
	StartValue    float64    `json:"start_value"`
	EndValue      float64    `json:"end_value"`
	ChangePercent float64    `json:"change_percent"`
}

// nearestObservation picks the observation whose month minimizes the absolute
// distance to target. Ties keep the first-encountered observation.
func nearestObservation(series TimeSeries, target Month) (Observation, bool) {
	if len(series) == 0 {
		return Observation{}, false
	}
	best := series[0]
	bestDist := series[0].Month.DistanceTo(target)
	for _, obs := range series[1:] {
		if d := obs.Month.DistanceTo(target); d < bestDist {
			best = obs
			bestDist = d
		}
	}
	return best, true
}

// PercentChange computes round((end-start)/start*100, 2). A zero start value
// yields 0 by policy: the division is undefined there, and the dashboard
// masks that case rather than surfacing it. Known approximation.
func PercentChange(start, end float64) float64 {
	if start == 0 {
		return 0
	}
	raw := (end - start) / start * 100
	return decimal.NewFromFloat(raw).Round(2).InexactFloat64()
}

// round2 rounds an index value to two decimals for display.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// ComputeChange produces the change result for a single region's series
// against a requested date pair. Returns false when the series is empty.
func ComputeChange(series TimeSeries, region RegionCode, name RegionName, start, end Month) (ChangeResult, bool) {
	s, ok := nearestObservation(series, start)
	if !ok {
		return ChangeResult{}, false
	}
	e, ok := nearestObservation(series, end)
	if !ok {
		return ChangeResult{}, false
	}
	return ChangeResult{
		Region:        region,
		Name:          name,
		StartMonth:    s.Month.String(),
		EndMonth:      e.Month.String(),
		StartValue:    round2(s.IndexValue),
		EndValue:      round2(e.IndexValue),
		ChangePercent: PercentChange(s.IndexValue, e.IndexValue),
	}, true
}

// ComputeChanges runs the change calculation for every region in the table.
// The result set is unordered; callers sort for display. Regions absent from
// the table are skipped regardless of mode.
func ComputeChanges(byRegion map[RegionCode]TimeSeries, table *RegionTable, start, end Month, mode ChangeMode) []ChangeResult {
	out := make([]ChangeResult, 0, len(byRegion))
	for _, code := range table.Codes() {
		name, _ := table.Name(code)
		series := byRegion[code]
		result, ok := ComputeChange(series, code, name, start, end)
		if !ok {
			if mode == ModeDropMissing {
				continue
			}
			result = ChangeResult{
				Region:     code,
				Name:       name,
				StartMonth: start.String(),
				EndMonth:   end.String(),
				// Zero values, so PercentChange's zero-start policy applies.
				ChangePercent: 0,
			}
		}
		out = append(out, result)
	}
	return out
}
