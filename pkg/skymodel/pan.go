package skymodel

import "math"

// PanParams parameterizes the Pan model.
type PanParams struct {
	// MaxDoP caps the degree of polarization, standing in for haze
	// and turbidity depolarization. Valid in (0, 1]; zero selects 1.
	MaxDoP float64
}

// Validate reports hard domain errors.
func (p PanParams) Validate() error {
	if math.IsNaN(p.MaxDoP) || math.IsInf(p.MaxDoP, 0) {
		return &ParamError{Model: "pan", Field: "max_dop", Msg: "must be finite"}
	}
	if p.MaxDoP < 0 || p.MaxDoP > 1 {
		return &ParamError{Model: "pan", Field: "max_dop", Msg: "must be in (0, 1]"}
	}
	return nil
}

// Pan is the Berry singularity model with the empirical neutral-point
// fits of Pan et al. and a turbidity-like ceiling on the degree of
// polarization. The neutral-point separations are not free parameters:
// they follow the sun's elevation h (degrees) as published,
//
//	Babinet:  42.53 − 0.56·h
//	Brewster: 37.34 + 0.49·h   (h ≤ 27°)
//	          56.84 − 0.25·h   (h > 27°)
//
// halved by the stereographic placement of the singularities and
// clamped at zero when a fit crosses it at high sun. Bind the model to
// a sun elevation with ForElevation; a freshly constructed Pan uses
// h = 0 (sun on the horizon).
type Pan struct {
	maxDoP  float64
	elevRad float64
	core    Berry
}

// NewPan validates p and builds the model at sun elevation 0.
func NewPan(p PanParams) (*Pan, error) {
	if p.MaxDoP == 0 {
		p.MaxDoP = 1 // no attenuation
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return newPanAt(p.MaxDoP, 0), nil
}

func newPanAt(maxDoP, elevRad float64) *Pan {
	elevRad = clamp(elevRad, -math.Pi/2, math.Pi/2)
	elevDeg := elevRad * 180 / math.Pi
	return &Pan{
		maxDoP:  maxDoP,
		elevRad: elevRad,
		core: Berry{
			deltaSun:  halfSeparationRad(babinetSeparationDeg(elevDeg)),
			deltaAnti: halfSeparationRad(brewsterSeparationDeg(elevDeg)),
		},
	}
}

// ForElevation returns a Pan bound to the given sun elevation in
// radians. The receiver is unchanged.
func (p *Pan) ForElevation(elevationRad float64) Model {
	return newPanAt(p.maxDoP, elevationRad)
}

func (p *Pan) Name() string { return string(KindPan) }

// MaxDoP returns the configured polarization ceiling.
func (p *Pan) MaxDoP() float64 { return p.maxDoP }

// SunElevation returns the elevation the model is bound to, radians.
func (p *Pan) SunElevation() float64 { return p.elevRad }

// NeutralSeparations returns the angular distances of the two neutral
// points from the sun and from the antisolar point, in radians.
func (p *Pan) NeutralSeparations() (sunSideRad, antiSideRad float64) {
	return p.core.deltaSun, p.core.deltaAnti
}

func (p *Pan) Evaluate(gamma float64) (intensity, dop float64) {
	intensity, dop = p.core.Evaluate(gamma)
	return intensity, clamp01(p.maxDoP * dop)
}

// AxisRotated reports the π/2 axis flip beyond the neutral points.
func (p *Pan) AxisRotated(gamma float64) bool {
	return p.core.AxisRotated(gamma)
}

// Neutral-point separation fits from Pan et al., in degrees of
// sun-to-point separation as published.
func babinetSeparationDeg(elevDeg float64) float64 {
	return 42.53 - 0.56*elevDeg
}

func brewsterSeparationDeg(elevDeg float64) float64 {
	if elevDeg <= 27 {
		return 37.34 + 0.49*elevDeg
	}
	return 56.84 - 0.25*elevDeg
}

func halfSeparationRad(sepDeg float64) float64 {
	if sepDeg < 0 {
		sepDeg = 0 // neutral point merged with its singular partner
	}
	return sepDeg / 2 * math.Pi / 180
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
