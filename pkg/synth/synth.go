package synth

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"

	"github.com/taciochi/skylumos/pkg/sensor"
	"github.com/taciochi/skylumos/pkg/skyfield"
)

// Options configures one synthesis run. The zero value synthesizes an
// ideal noiseless sensor.
type Options struct {
	// ExtinctionRatio is the polarizer efficiency in (0, 1]. Zero
	// selects the ideal 1.
	ExtinctionRatio float64
	// Noise perturbs each response before quantization. Nil disables.
	Noise Noise
	// Quantizer converts responses to ADC levels. Nil leaves them as
	// continuous values.
	Quantizer *Quantizer
	// Seed fully determines the noise draws of the run.
	Seed uint64
}

// normalized applies defaults and validates.
func (o Options) normalized() (Options, error) {
	if o.ExtinctionRatio == 0 {
		o.ExtinctionRatio = 1
	}
	if math.IsNaN(o.ExtinctionRatio) || o.ExtinctionRatio <= 0 || o.ExtinctionRatio > 1 {
		return o, fmt.Errorf("synth: extinction ratio must be in (0, 1], got %v", o.ExtinctionRatio)
	}
	if o.Noise == nil {
		o.Noise = NoNoise{}
	}
	if o.Quantizer != nil {
		if err := o.Quantizer.Validate(); err != nil {
			return o, err
		}
	}
	return o, nil
}

// Recording is one synthesized frame: a response per sensor element in
// element order, together with everything needed to interpret it. It
// is never mutated after Synthesize returns.
type Recording struct {
	// Frame and Time identify the frame inside a batch; a standalone
	// Synthesize leaves them zero.
	Frame int
	Time  time.Time

	Sun      skyfield.SunState
	Geometry sensor.Geometry
	// Responses holds one value per geometry element: an intensity in
	// model units, an ADC level when quantization is enabled, and NaN
	// for masked elements.
	Responses []float64
}

// Synthesize records one frame of the field through the sensor.
//
// The pipeline follows the physical signal chain: the pure Malus
// response of every element first, then noise, then the ADC. The
// quantization reference is the brightest pre-noise response, so noise
// on bright pixels can clip at full scale. Noise is drawn from a
// source seeded with Options.Seed, in element order; two calls with
// identical inputs produce identical recordings.
func Synthesize(field skyfield.Field, geom sensor.Geometry, opts Options) (Recording, error) {
	opts, err := opts.normalized()
	if err != nil {
		return Recording{}, err
	}

	responses := make([]float64, len(geom.Elements))
	preNoiseMax := math.Inf(-1)
	for i, e := range geom.Elements {
		if e.Masked {
			responses[i] = math.NaN()
			continue
		}
		r := Response(field.At(e.Direction), e.OrientationRad, opts.ExtinctionRatio)
		if r > preNoiseMax {
			preNoiseMax = r
		}
		responses[i] = r
	}

	src := rand.NewSource(opts.Seed)
	for i, e := range geom.Elements {
		if e.Masked {
			continue
		}
		responses[i] = opts.Noise.Perturb(responses[i], src)
	}

	if opts.Quantizer != nil {
		opts.Quantizer.Apply(responses, preNoiseMax)
	}

	return Recording{Sun: field.Sun, Geometry: geom, Responses: responses}, nil
}
