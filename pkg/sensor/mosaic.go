package sensor

import "math"

// MosaicCell assigns one polarizer orientation to a periodic subset of
// the pixel grid: the pixels whose row and column indices equal RowOff
// and ColOff modulo Step. A set of cells tiles the sensor the way a
// wire-grid micro-polarizer array is etched onto it.
type MosaicCell struct {
	// AngleRad is the wire-grid orientation in [0, π).
	AngleRad float64
	// RowOff and ColOff locate the cell inside its tile, in [0, Step).
	RowOff, ColOff int
	// Step is the tile pitch in pixels, at least 1.
	Step int
}

// Mosaic is a micro-polarizer layout: a set of cells that together
// cover every pixel exactly once.
type Mosaic []MosaicCell

// DefaultQuadMosaic is the four-directional 2×2 tile of commercial
// polarization imagers (90° and 45° on the first row, 135° and 0° on
// the second), the layout of the Sony IMX250MZR family.
func DefaultQuadMosaic() Mosaic {
	return Mosaic{
		{AngleRad: math.Pi / 2, RowOff: 0, ColOff: 0, Step: 2},
		{AngleRad: math.Pi / 4, RowOff: 0, ColOff: 1, Step: 2},
		{AngleRad: 3 * math.Pi / 4, RowOff: 1, ColOff: 0, Step: 2},
		{AngleRad: 0, RowOff: 1, ColOff: 1, Step: 2},
	}
}

// UniformMosaic covers the whole sensor with a single orientation, the
// layout of a plain sheet polarizer in front of the lens.
func UniformMosaic(angleRad float64) Mosaic {
	return Mosaic{{AngleRad: angleRad, RowOff: 0, ColOff: 0, Step: 1}}
}

// Validate checks the cell fields and that the cells cover every pixel
// of the tiling exactly once. Cells may carry different steps; coverage
// is checked over one period of the combined tiling.
func (m Mosaic) Validate() error {
	if len(m) == 0 {
		return &ConfigError{Field: "mosaic", Msg: "must have at least one cell"}
	}
	period := 1
	for _, c := range m {
		if c.Step < 1 {
			return &ConfigError{Field: "mosaic.step", Msg: "must be at least 1"}
		}
		if c.RowOff < 0 || c.RowOff >= c.Step || c.ColOff < 0 || c.ColOff >= c.Step {
			return &ConfigError{Field: "mosaic.offset", Msg: "must lie inside the tile, in [0, step)"}
		}
		if math.IsNaN(c.AngleRad) || c.AngleRad < 0 || c.AngleRad >= math.Pi {
			return &ConfigError{Field: "mosaic.angle_rad", Msg: "must be in [0, π)"}
		}
		period = lcm(period, c.Step)
	}
	for r := 0; r < period; r++ {
		for c := 0; c < period; c++ {
			n := 0
			for _, cell := range m {
				if r%cell.Step == cell.RowOff && c%cell.Step == cell.ColOff {
					n++
				}
			}
			if n != 1 {
				return &ConfigError{Field: "mosaic", Msg: "cells must cover every pixel exactly once"}
			}
		}
	}
	return nil
}

// angleAt returns the orientation etched over pixel (row, col). The
// mosaic must have passed Validate, so exactly one cell matches.
func (m Mosaic) angleAt(row, col int) float64 {
	for _, c := range m {
		if row%c.Step == c.RowOff && col%c.Step == c.ColOff {
			return c.AngleRad
		}
	}
	return 0
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
