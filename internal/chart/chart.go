// Package chart renders drill-down time series as PNG line charts.
package chart

import (
	"errors"
	"io"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/8irDeok/houseprice-dashboard/internal/domain"
)

// ErrNotEnoughPoints is returned when a series has fewer than two
// observations; a line needs two ends.
var ErrNotEnoughPoints = errors.New("series needs at least two observations")

// RenderSeriesPNG draws one region's index series as a PNG line chart.
func RenderSeriesPNG(w io.Writer, series domain.TimeSeries) error {
	if len(series) < 2 {
		return ErrNotEnoughPoints
	}

	xs := make([]float64, 0, len(series))
	ys := make([]float64, 0, len(series))
	for _, obs := range series {
		xs = append(xs, float64(obs.Month.Time().Unix()))
		ys = append(ys, obs.IndexValue)
	}

	graph := gochart.Chart{
		Width:  720,
		Height: 320,
		XAxis: gochart.XAxis{
			ValueFormatter: func(v interface{}) string {
				f, ok := v.(float64)
				if !ok {
					return ""
				}
				return domain.MonthOf(time.Unix(int64(f), 0).UTC()).String()
			},
		},
		YAxis: gochart.YAxis{
			// The index hovers around 100; starting the axis at zero would
			// flatten every series into a straight line.
			Range: &gochart.ContinuousRange{Min: minOf(ys) - 1, Max: maxOf(ys) + 1},
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeColor: drawing.ColorFromHex("1f77b4"),
					StrokeWidth: 2.0,
					DotColor:    drawing.ColorFromHex("1f77b4"),
					DotWidth:    3.0,
				},
			},
		},
	}

	return graph.Render(gochart.PNG, w)
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
