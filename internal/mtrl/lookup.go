package mtrl

import "math"

// TableRow is the row pair selected by a packed table coordinate.
type TableRow struct {
	Stepped  int
	Previous int
	Next     int
	Weight   float32
}

// RowLookup maps a packed [0,1] coordinate onto a table with the given row
// count. The arithmetic is kept in float32 with explicit rounding at every
// step so the interpolation edges match the GPU computation.
func RowLookup(input float32, rows int) TableRow {
	scale := float32(rows - 1)
	half := float32(scale * 0.5)

	scaled := float32(input * scale)
	halved := float32(input * half)
	odd := floor32(float32(mod1(halved) * 2))
	snap := float32(floor32(float32(scaled+0.5)) - scaled)
	smoothed := float32(float32(odd*snap) + scaled)

	last := rows - 1
	return TableRow{
		Stepped:  clampRow(int(floor32(float32(smoothed+0.5))), last),
		Previous: clampRow(int(floor32(smoothed)), last),
		Next:     clampRow(int(float32(math.Ceil(float64(smoothed)))), last),
		Weight:   mod1(smoothed),
	}
}

func floor32(v float32) float32 { return float32(math.Floor(float64(v))) }

// mod1 is GLSL mod(v, 1).
func mod1(v float32) float32 { return float32(v - floor32(v)) }

func clampRow(i, last int) int {
	if i < 0 {
		return 0
	}
	if i > last {
		return last
	}
	return i
}
