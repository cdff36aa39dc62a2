package skymodel

import (
	"math"
	"testing"
)

const epsilon = 1e-12 // tolerance for float comparisons

func TestRayleigh_MaxPolarizationAtRightAngle(t *testing.T) {
	_, dop := Rayleigh{}.Evaluate(math.Pi / 2)
	if math.Abs(dop-1) > epsilon {
		t.Errorf("dop at γ=π/2 = %v, want 1", dop)
	}
}

func TestRayleigh_ZeroPolarizationTowardAndAwayFromSun(t *testing.T) {
	for _, gamma := range []float64{0, math.Pi} {
		_, dop := Rayleigh{}.Evaluate(gamma)
		if math.Abs(dop) > epsilon {
			t.Errorf("dop at γ=%v = %v, want 0", gamma, dop)
		}
	}
}

func TestRayleigh_DopSymmetricAboutRightAngle(t *testing.T) {
	// The single-scattering degree of polarization depends only on
	// sin²γ and cos²γ, so it must satisfy dop(γ) = dop(π−γ).
	for gamma := 0.0; gamma <= math.Pi/2; gamma += 0.05 {
		_, a := Rayleigh{}.Evaluate(gamma)
		_, b := Rayleigh{}.Evaluate(math.Pi - gamma)
		if math.Abs(a-b) > epsilon {
			t.Fatalf("dop(%v) = %v, dop(π−%v) = %v: want symmetric", gamma, a, gamma, b)
		}
	}
}

func TestRayleigh_DopStaysInUnitInterval(t *testing.T) {
	for gamma := 0.0; gamma <= math.Pi; gamma += 0.01 {
		_, dop := Rayleigh{}.Evaluate(gamma)
		if dop < 0 || dop > 1 {
			t.Fatalf("dop(%v) = %v, outside [0, 1]", gamma, dop)
		}
	}
}

func TestRayleigh_PhaseProfileIntensity(t *testing.T) {
	cases := []struct {
		name  string
		gamma float64
		want  float64
	}{
		{"toward_sun", 0, 2},
		{"right_angle", math.Pi / 2, 1},
		{"antisolar", math.Pi, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			intensity, _ := Rayleigh{}.Evaluate(tc.gamma)
			if math.Abs(intensity-tc.want) > epsilon {
				t.Errorf("intensity(%v) = %v, want %v", tc.gamma, intensity, tc.want)
			}
		})
	}
}

func TestRayleigh_ClosedForm(t *testing.T) {
	// Spot-check dop = sin²γ / (1 + cos²γ) at a generic angle.
	gamma := 0.7
	s, c := math.Sin(gamma), math.Cos(gamma)
	want := s * s / (1 + c*c)
	_, dop := Rayleigh{}.Evaluate(gamma)
	if math.Abs(dop-want) > epsilon {
		t.Errorf("dop(%v) = %v, want %v", gamma, dop, want)
	}
}
