package skymodel

import (
	"fmt"
	"math"
)

// cieCoeffs are the (a, b, c, d, e) gradation/indicatrix coefficients
// of the 15 CIE Standard General Skies (ISO 15469:2004 / CIE S 011),
// type 1 (heavily overcast) through type 15 (white-blue turbid sky
// with a broad solar corona).
var cieCoeffs = [15][5]float64{
	{4.0, -0.70, 0, -1.0, 0},
	{4.0, -0.70, 2, -1.5, 0.15},
	{1.1, -0.8, 0, -1.0, 0},
	{1.1, -0.8, 2, -1.5, 0.15},
	{0, -1.0, 0, -1.0, 0},
	{0, -1.0, 2, -1.5, 0.15},
	{0, -1.0, 5, -2.5, 0.30},
	{0, -1.0, 10, -3.0, 0.45},
	{-1.0, -0.55, 2, -1.5, 0.15},
	{-1.0, -0.55, 5, -2.5, 0.30},
	{-1.0, -0.55, 10, -3.0, 0.45},
	{-1.0, -0.32, 10, -3.0, 0.45},
	{-1.0, -0.32, 16, -3.0, 0.30},
	{-1.0, -0.15, 16, -3.0, 0.30},
	{-1.0, -0.15, 24, -2.8, 0.15},
}

// CIESky computes the relative luminance distribution of a CIE
// Standard General Sky. It refines the flat 1+cos²γ intensity of the
// scattering models with the standard's luminance gradation between
// horizon and zenith and its scattering indicatrix around the sun;
// type 12 is the CIE Standard Clear Sky.
type CIESky struct {
	skyType       int
	a, b, c, d, e float64
}

// NewCIESky builds the sky of the given standard type, 1 through 15.
func NewCIESky(skyType int) (*CIESky, error) {
	if skyType < 1 || skyType > len(cieCoeffs) {
		return nil, fmt.Errorf("cie sky type must be between 1 and %d, got %d", len(cieCoeffs), skyType)
	}
	co := cieCoeffs[skyType-1]
	return &CIESky{skyType: skyType, a: co[0], b: co[1], c: co[2], d: co[3], e: co[4]}, nil
}

// Type returns the standard sky type, 1 through 15.
func (s *CIESky) Type() int { return s.skyType }

// RelativeLuminance returns L/Lz, the luminance of the sky element at
// viewZenith (radians) relative to the zenith luminance, for a sun at
// sunZenith and a scattering angle gamma between them. A view at the
// zenith yields exactly 1.
func (s *CIESky) RelativeLuminance(viewZenith, sunZenith, gamma float64) float64 {
	return (s.indicatrix(gamma) * s.gradation(viewZenith)) /
		(s.indicatrix(sunZenith) * s.gradation(0))
}

// gradation is the luminance gradation function φ(Z) = 1 + a·exp(b/cos Z)
// for Z < π/2; at and below the horizon the standard fixes φ = 1.
func (s *CIESky) gradation(zenith float64) float64 {
	if zenith >= math.Pi/2 {
		return 1
	}
	return 1 + s.a*math.Exp(s.b/math.Cos(zenith))
}

// indicatrix is the scattering indicatrix
// f(x) = 1 + c·(exp(d·x) − exp(d·π/2)) + e·cos²x.
func (s *CIESky) indicatrix(x float64) float64 {
	cx := math.Cos(x)
	return 1 + s.c*(math.Exp(s.d*x)-math.Exp(s.d*math.Pi/2)) + s.e*cx*cx
}
