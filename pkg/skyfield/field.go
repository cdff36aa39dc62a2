// Package skyfield composes a scattering model with a sun position
// into a queryable polarization pattern over the sky dome: one pure
// function from viewing direction to (intensity, degree, angle) of
// linear polarization.
package skyfield

import (
	"math"

	"github.com/taciochi/skylumos/pkg/skygeom"
	"github.com/taciochi/skylumos/pkg/skymodel"
)

// SunState fixes the sun for one snapshot of the field. It is supplied
// by an ephemeris provider or built directly for synthetic scenes.
type SunState struct {
	// Direction is the unit vector toward the sun.
	Direction skygeom.Direction
	// ElevationRad is the sun's elevation above the horizon in
	// radians. Sun-adaptive models bind their empirical coefficients
	// to it; it may be negative during twilight.
	ElevationRad float64
}

// SunFromAltAz builds a SunState from an altitude and an azimuth in
// degrees, the convention ephemeris providers speak.
func SunFromAltAz(altDeg, azDeg float64) SunState {
	return SunState{
		Direction:    skygeom.FromAltAz(altDeg, azDeg),
		ElevationRad: altDeg * math.Pi / 180,
	}
}

// PolarizationState is the field value at one viewing direction.
// Intensity is relative and unnormalized: the model's own phase
// profile, or the CIE relative luminance when a radiance distribution
// is attached to the field.
type PolarizationState struct {
	Intensity float64
	// DoP is the degree of linear polarization in [0, 1].
	DoP float64
	// AoPRad is the angle of polarization in [0, π), measured at the
	// view point from the local meridian toward east. It is the
	// sentinel 0 where Degenerate is set.
	AoPRad float64
	// ScatteringRad is the sun-view scattering angle γ ∈ [0, π].
	ScatteringRad float64
	// Degenerate marks directions where the angle of polarization has
	// no defined value: the zenith, or views on the sun-antisun axis.
	Degenerate bool
}

// Field is a snapshot of the sky polarization pattern: a scattering
// model bound to one sun state, optionally refined by a CIE standard
// sky luminance distribution. A Field is a value with no internal
// state; it is safe to evaluate concurrently from many goroutines.
type Field struct {
	Sun   SunState
	Model skymodel.Model
	// Radiance, when non-nil, replaces the model's phase-profile
	// intensity with the CIE relative luminance L/Lz.
	Radiance *skymodel.CIESky
}

// New binds model to sun. Sun-adaptive models are resolved here, so
// the field carries the coefficients derived for this sun elevation.
func New(sun SunState, model skymodel.Model) Field {
	if sa, ok := model.(skymodel.SunAdaptive); ok {
		model = sa.ForElevation(sun.ElevationRad)
	}
	return Field{Sun: sun, Model: model}
}

// WithRadiance returns a copy of the field whose intensity follows the
// given CIE standard sky instead of the model's phase profile.
func (f Field) WithRadiance(sky *skymodel.CIESky) Field {
	f.Radiance = sky
	return f
}

// At evaluates the field at one viewing direction.
//
// The angle of polarization is referenced to the local meridian at the
// view point (the E-vector of singly scattered light is perpendicular
// to the scattering plane; the returned angle is the scattering-plane
// bearing, folded modulo π). Models that predict inverted-polarization
// zones rotate the axis by π/2 inside them; degenerate directions keep
// the sentinel 0 instead.
func (f Field) At(view skygeom.Direction) PolarizationState {
	gamma := skygeom.ScatteringAngle(f.Sun.Direction, view)
	intensity, dop := f.Model.Evaluate(gamma)
	aop := skygeom.PolarizationAngle(f.Sun.Direction, view)
	degenerate := skygeom.Degenerate(f.Sun.Direction, view)

	if !degenerate {
		if rot, ok := f.Model.(skymodel.AxisRotator); ok && rot.AxisRotated(gamma) {
			aop = math.Mod(aop+math.Pi/2, math.Pi)
		}
	}
	if f.Radiance != nil {
		intensity = f.Radiance.RelativeLuminance(view.Zenith(), f.Sun.Direction.Zenith(), gamma)
	}
	return PolarizationState{
		Intensity:     intensity,
		DoP:           dop,
		AoPRad:        aop,
		ScatteringRad: gamma,
		Degenerate:    degenerate,
	}
}
