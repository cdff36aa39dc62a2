// Package synth turns a sky polarization field and a sensor geometry
// into recordings: it evaluates the field along every sensor element,
// applies the generalized Malus law for the element's polarizer
// orientation, and optionally layers sensor noise and ADC quantization
// on top. Randomness is injected through seeds, never drawn from a
// process-global source, so every recording is reproducible.
package synth

import (
	"math"

	"github.com/taciochi/skylumos/pkg/skyfield"
)

// Response is the generalized Malus law for partially polarized light:
// the transmitted intensity of a linear polarizer at orientation φ
// facing a sky element with intensity I, degree of polarization p and
// polarization angle α,
//
//	r = I · (1 − ER·p·cos 2(α − φ)) / 2.
//
// ER is the polarizer's extinction ratio (1 for an ideal polarizer;
// real wire grids fall slightly short). Unpolarized light (p = 0)
// transmits I/2 regardless of φ. Both α and φ are measured from the
// local meridian, so the cosine argument is reference-free.
func Response(state skyfield.PolarizationState, orientationRad, extinctionRatio float64) float64 {
	return state.Intensity * (1 - extinctionRatio*state.DoP*math.Cos(2*(state.AoPRad-orientationRad))) / 2
}
