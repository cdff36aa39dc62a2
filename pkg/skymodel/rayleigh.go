package skymodel

import "math"

// Rayleigh is the single-scattering model. It has no free parameters:
// the degree of polarization is sin²γ / (1 + cos²γ), zero toward and
// away from the sun and exactly 1 at γ = π/2, and the relative
// intensity follows the phase profile 1 + cos²γ.
type Rayleigh struct{}

func (Rayleigh) Name() string { return string(KindRayleigh) }

func (Rayleigh) Evaluate(gamma float64) (intensity, dop float64) {
	c := math.Cos(gamma)
	s := math.Sin(gamma)
	intensity = 1 + c*c
	dop = clamp01(s * s / intensity)
	return intensity, dop
}
