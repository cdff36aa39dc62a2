package synth

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Noise perturbs one pre-quantization response value. Implementations
// draw from the supplied source and nothing else, so a synthesis run
// is fully determined by its seed. NaN responses (masked elements)
// pass through untouched.
type Noise interface {
	Perturb(value float64, src rand.Source) float64
}

// NoNoise leaves responses untouched and consumes no draws.
type NoNoise struct{}

func (NoNoise) Perturb(value float64, _ rand.Source) float64 { return value }

// GaussianSNR models sensor white noise relative to signal level: the
// response is redrawn from a normal with σ = |value| / SNR centered on
// the value. SNR must be positive.
type GaussianSNR struct {
	SNR float64
}

func (g GaussianSNR) Perturb(value float64, src rand.Source) float64 {
	if math.IsNaN(value) {
		return value
	}
	return distuv.Normal{Mu: value, Sigma: math.Abs(value) / g.SNR, Src: src}.Rand()
}

// AdditiveGaussian adds signal-independent read noise with a fixed
// standard deviation, in response units. Sigma must be non-negative.
type AdditiveGaussian struct {
	Sigma float64
}

func (a AdditiveGaussian) Perturb(value float64, src rand.Source) float64 {
	if math.IsNaN(value) || a.Sigma == 0 {
		return value
	}
	return distuv.Normal{Mu: value, Sigma: a.Sigma, Src: src}.Rand()
}

// Shot models photon shot noise: the response is converted to an
// expected photon count through PhotonScale (photons per response
// unit), redrawn from a Poisson distribution, and converted back.
// Non-positive expectations pass through unchanged, matching the dark
// limit where no photons arrive.
type Shot struct {
	PhotonScale float64
}

func (s Shot) Perturb(value float64, src rand.Source) float64 {
	lambda := value * s.PhotonScale
	if math.IsNaN(lambda) || lambda <= 0 {
		return value
	}
	counts := distuv.Poisson{Lambda: lambda, Src: src}.Rand()
	return counts / s.PhotonScale
}
