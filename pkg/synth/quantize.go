package synth

import (
	"fmt"
	"math"
)

// Quantizer emulates the sensor ADC: responses are scaled so the
// frame's brightest pre-noise response lands at SaturationRatio of
// full scale, floored to integer levels and clamped to the converter
// range. Noise applied before quantization can therefore drive bright
// pixels into saturation, which is the effect being modeled.
type Quantizer struct {
	// BitDepth is the converter resolution, 1 through 32 bits.
	BitDepth int
	// SaturationRatio places the brightest pre-noise response at this
	// fraction of full scale, in (0, 1]. Zero selects 1.
	SaturationRatio float64
}

// Validate reports configuration outside the converter's domain.
func (q Quantizer) Validate() error {
	if q.BitDepth < 1 || q.BitDepth > 32 {
		return fmt.Errorf("quantizer: bit depth must be in [1, 32], got %d", q.BitDepth)
	}
	if math.IsNaN(q.SaturationRatio) || q.SaturationRatio < 0 || q.SaturationRatio > 1 {
		return fmt.Errorf("quantizer: saturation ratio must be in (0, 1], got %v", q.SaturationRatio)
	}
	return nil
}

// MaxLevel returns the top output level, 2^bits − 1.
func (q Quantizer) MaxLevel() float64 {
	return math.Exp2(float64(q.BitDepth)) - 1
}

// Apply quantizes responses in place. refMax is the brightest pre-noise
// response of the frame; when no positive reference exists (an all-dark
// or fully masked frame) every response collapses to level zero. NaN
// responses pass through so masked elements stay marked.
func (q Quantizer) Apply(responses []float64, refMax float64) {
	maxLevel := q.MaxLevel()
	sat := q.SaturationRatio
	if sat == 0 {
		sat = 1
	}
	if !(refMax > 0) {
		for i, v := range responses {
			if !math.IsNaN(v) {
				responses[i] = 0
			}
		}
		return
	}
	scale := maxLevel / (refMax * sat)
	for i, v := range responses {
		if math.IsNaN(v) {
			continue
		}
		level := math.Floor(scale * v)
		if level < 0 {
			level = 0
		} else if level > maxLevel {
			level = maxLevel
		}
		responses[i] = level
	}
}
