package skymodel

import "math"

// berryFitMaxRad bounds the neutral-point separations the Berry model
// was fitted against (roughly 34°). Larger values still evaluate.
const berryFitMaxRad = 0.6

// BerryParams parameterizes the Berry model by its neutral-point
// separations along the solar meridian, in radians.
type BerryParams struct {
	// DeltaSunRad moves the sun-side neutral point from the sun
	// itself to DeltaSunRad above it. Zero (the default) keeps the
	// node pinned at the sun; nonzero values reproduce the Berry
	// prediction of weak inverted polarization at the sun.
	DeltaSunRad float64
	// DeltaAntiRad moves the antisolar-side neutral point from the
	// antisolar direction to DeltaAntiRad above it (the Arago point).
	DeltaAntiRad float64
}

// Validate reports hard domain errors: non-finite or negative
// separations, or separations so large the two neutral points would
// cross (δ_sun + δ_anti ≥ π).
func (p BerryParams) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"delta_sun_rad", p.DeltaSunRad},
		{"delta_anti_rad", p.DeltaAntiRad},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ParamError{Model: "berry", Field: f.name, Msg: "must be finite"}
		}
		if f.v < 0 {
			return &ParamError{Model: "berry", Field: f.name, Msg: "must be >= 0"}
		}
	}
	if p.DeltaSunRad+p.DeltaAntiRad >= math.Pi {
		return &ParamError{Model: "berry", Field: "delta_sun_rad+delta_anti_rad",
			Msg: "must be < π (neutral points may not cross)"}
	}
	return nil
}

// FitWarnings lists parameters beyond the documented fit range. These
// are advisory: the closed form stays defined and the degree of
// polarization stays clamped to [0, 1].
func (p BerryParams) FitWarnings() []FitWarning {
	var ws []FitWarning
	if p.DeltaSunRad > berryFitMaxRad {
		ws = append(ws, FitWarning{Model: "berry", Field: "delta_sun_rad",
			Value: p.DeltaSunRad, Lo: 0, Hi: berryFitMaxRad})
	}
	if p.DeltaAntiRad > berryFitMaxRad {
		ws = append(ws, FitWarning{Model: "berry", Field: "delta_anti_rad",
			Value: p.DeltaAntiRad, Lo: 0, Hi: berryFitMaxRad})
	}
	return ws
}

// Berry is the singularity model of Berry, Dennis and Lee (2004,
// New J. Phys. 6 162) restricted to the great circle through the sun
// and the zenith. The reduced field along that circle is
//
//	w(γ) = −sin(γ − δ_sun) · sin(γ + δ_anti)
//
// with degree of polarization |w| / (2 − |w|), which vanishes at
// γ = δ_sun and at γ = π − δ_anti (the Arago point above the antisolar
// direction) and recovers Rayleigh exactly when both separations are
// zero. Between the neutral points the polarization axis lies
// perpendicular to the scattering plane; beyond them (w > 0) it is
// rotated by π/2, which AxisRotated reports.
type Berry struct {
	deltaSun  float64
	deltaAnti float64
}

// NewBerry validates p and builds the model.
func NewBerry(p BerryParams) (*Berry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Berry{deltaSun: p.DeltaSunRad, deltaAnti: p.DeltaAntiRad}, nil
}

func (b *Berry) Name() string { return string(KindBerry) }

// Params returns the separations the model was built with.
func (b *Berry) Params() BerryParams {
	return BerryParams{DeltaSunRad: b.deltaSun, DeltaAntiRad: b.deltaAnti}
}

func (b *Berry) w(gamma float64) float64 {
	return -math.Sin(gamma-b.deltaSun) * math.Sin(gamma+b.deltaAnti)
}

func (b *Berry) Evaluate(gamma float64) (intensity, dop float64) {
	c := math.Cos(gamma)
	intensity = 1 + c*c
	aw := math.Abs(b.w(gamma))
	dop = clamp01(aw / (2 - aw))
	return intensity, dop
}

// AxisRotated reports whether gamma lies beyond a neutral point, where
// the polarization axis flips by π/2 (the zone of negative
// polarization below the sun-side node and below the Arago point).
func (b *Berry) AxisRotated(gamma float64) bool {
	return b.w(gamma) > 0
}
