package domain

import (
	"fmt"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	// NoDataColor is the neutral fill for features without an attached
	// change result. Distinct from any ramp color so "no data" is never
	// mistaken for "no change".
	NoDataColor = "#8c8c8c"

	// FlatColor is the single color used when every value is identical and
	// a gradient has no extent to normalize over.
	FlatColor = "#ffffff"
)

// rampStops are the anchor colors of the RdYlGn diverging ramp: losses red,
// flat yellow, gains green.
var rampStops = []struct {
	pos   float64
	color drawing.Color
}{
	{0.00, drawing.ColorFromHex("a50026")},
	{0.25, drawing.ColorFromHex("f46d43")},
	{0.50, drawing.ColorFromHex("ffffbf")},
	{0.75, drawing.ColorFromHex("66bd63")},
	{1.00, drawing.ColorFromHex("006837")},
}

// ColorScale maps change values onto the diverging ramp via linear
// normalization over the observed [min, max].
type ColorScale struct {
	min  float64
	max  float64
	flat bool
}

// NewColorScale builds a scale from the defined change values. An empty set
// or a degenerate min==max range produces a flat scale that returns a single
// neutral color for every input, avoiding the zero-width division entirely.
func NewColorScale(values []float64) ColorScale {
	if len(values) == 0 {
		return ColorScale{flat: true}
	}
	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return ColorScale{min: minV, max: maxV, flat: minV == maxV}
}

// Position returns the normalized position of v on the scale, clamped to
// [0, 1]. Inputs outside [min, max] cannot occur when the scale was built
// from the same value set, but float arithmetic gets the guard anyway.
func (s ColorScale) Position(v float64) float64 {
	if s.flat {
		return 0.5
	}
	t := (v - s.min) / (s.max - s.min)
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Hex returns the ramp color for v as "#rrggbb".
func (s ColorScale) Hex(v float64) string {
	if s.flat {
		return FlatColor
	}
	c := rampColor(s.Position(v))
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// rampColor interpolates linearly between the two anchor stops surrounding t.
func rampColor(t float64) drawing.Color {
	if t <= rampStops[0].pos {
		return rampStops[0].color
	}
	for i := 1; i < len(rampStops); i++ {
		stop := rampStops[i]
		if t > stop.pos {
			continue
		}
		prev := rampStops[i-1]
		f := (t - prev.pos) / (stop.pos - prev.pos)
		return drawing.Color{
			R: lerpByte(prev.color.R, stop.color.R, f),
			G: lerpByte(prev.color.G, stop.color.G, f),
			B: lerpByte(prev.color.B, stop.color.B, f),
			A: 255,
		}
	}
	return rampStops[len(rampStops)-1].color
}

func lerpByte(a, b uint8, f float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*f + 0.5)
}
