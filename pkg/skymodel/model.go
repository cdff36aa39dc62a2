// Package skymodel implements closed-form scattering models for the
// polarization of clear-sky daylight. Each model maps a scattering
// angle (the angular separation between the sun and a viewing
// direction) to a relative intensity and a degree of linear
// polarization. The variant set is closed: Rayleigh single scattering,
// the Berry singularity model, and the Pan refinement with
// elevation-driven neutral points.
package skymodel

import (
	"fmt"
	"strings"
)

// Model evaluates a scattering model at a scattering angle γ ∈ [0, π].
// Implementations are pure values, safe for concurrent use.
type Model interface {
	// Name identifies the model variant ("rayleigh", "berry", "pan").
	Name() string
	// Evaluate returns the relative intensity (unnormalized, the
	// single-scattering phase profile 1+cos²γ) and the degree of
	// linear polarization in [0, 1] at scattering angle gamma.
	Evaluate(gamma float64) (intensity, dop float64)
}

// SunAdaptive is implemented by models whose empirical coefficients
// depend on the sun's elevation. ForElevation returns a derived model
// bound to the given elevation (radians above the horizon); the
// receiver is not modified.
type SunAdaptive interface {
	ForElevation(elevationRad float64) Model
}

// AxisRotator is implemented by models that predict zones of inverted
// polarization: beyond a neutral point the polarization axis rotates
// by π/2 relative to the usual perpendicular-to-scattering-plane
// orientation. AxisRotated reports whether gamma falls in such a zone.
type AxisRotator interface {
	AxisRotated(gamma float64) bool
}

// Kind selects a model variant.
type Kind string

const (
	KindRayleigh Kind = "rayleigh"
	KindBerry    Kind = "berry"
	KindPan      Kind = "pan"
)

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindRayleigh, KindBerry, KindPan:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sky model %q (want rayleigh, berry or pan)", s)
	}
}

// Params collects the scalar parameters of the empirical models.
// Rayleigh ignores all of them. The zero value selects each model's
// published defaults.
type Params struct {
	// DeltaSunRad is the Berry neutral-point separation above the sun
	// (radians). Zero collapses the sun-side neutral pair.
	DeltaSunRad float64
	// DeltaAntiRad is the Berry neutral-point separation above the
	// antisolar point (radians). Zero collapses the antisolar pair.
	DeltaAntiRad float64
	// MaxDoP is the Pan ceiling on the degree of polarization, in
	// (0, 1]. Zero selects 1 (no haze attenuation).
	MaxDoP float64
}

// New constructs the model variant selected by kind.
func New(kind Kind, p Params) (Model, error) {
	switch kind {
	case KindRayleigh:
		return Rayleigh{}, nil
	case KindBerry:
		return NewBerry(BerryParams{
			DeltaSunRad:  p.DeltaSunRad,
			DeltaAntiRad: p.DeltaAntiRad,
		})
	case KindPan:
		return NewPan(PanParams{MaxDoP: p.MaxDoP})
	default:
		return nil, fmt.Errorf("unknown sky model kind %q", kind)
	}
}

// ParamError reports a model parameter outside its valid domain. It is
// returned at construction time, never during evaluation.
type ParamError struct {
	Model string
	Field string
	Msg   string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s model: %s %s", e.Model, e.Field, e.Msg)
}

// FitWarning flags an empirical parameter outside the documented fit
// range of its model. Evaluation stays defined (the closed forms never
// leave [0,1] after clamping); whether to log is the caller's call.
type FitWarning struct {
	Model  string
	Field  string
	Value  float64
	Lo, Hi float64
}

func (w FitWarning) String() string {
	return fmt.Sprintf("%s model: %s=%g outside fitted range [%g, %g]",
		w.Model, w.Field, w.Value, w.Lo, w.Hi)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
