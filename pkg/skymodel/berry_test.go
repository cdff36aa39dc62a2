package skymodel

import (
	"errors"
	"math"
	"testing"
)

func TestBerry_ReducesToRayleighAtZeroSeparations(t *testing.T) {
	b, err := NewBerry(BerryParams{})
	if err != nil {
		t.Fatalf("NewBerry: %v", err)
	}
	for gamma := 0.0; gamma <= math.Pi; gamma += 0.01 {
		iB, dB := b.Evaluate(gamma)
		iR, dR := Rayleigh{}.Evaluate(gamma)
		if math.Abs(iB-iR) > epsilon || math.Abs(dB-dR) > epsilon {
			t.Fatalf("γ=%v: berry (%v, %v) != rayleigh (%v, %v)", gamma, iB, dB, iR, dR)
		}
	}
}

func TestBerry_NeutralPointsAtConfiguredSeparations(t *testing.T) {
	p := BerryParams{DeltaSunRad: 0.35, DeltaAntiRad: 0.22}
	b, err := NewBerry(p)
	if err != nil {
		t.Fatalf("NewBerry: %v", err)
	}
	if _, dop := b.Evaluate(p.DeltaSunRad); math.Abs(dop) > epsilon {
		t.Errorf("dop at the sun-side neutral point = %v, want 0", dop)
	}
	if _, dop := b.Evaluate(math.Pi - p.DeltaAntiRad); math.Abs(dop) > epsilon {
		t.Errorf("dop at the Arago point = %v, want 0", dop)
	}
}

func TestBerry_DopStaysInUnitInterval(t *testing.T) {
	// Property sweep over a grid of separations, including values well
	// outside the fit range: evaluation must stay within [0, 1].
	for _, ds := range []float64{0, 0.1, 0.4, 0.6, 1.2} {
		for _, da := range []float64{0, 0.05, 0.3, 0.6, 1.0} {
			b, err := NewBerry(BerryParams{DeltaSunRad: ds, DeltaAntiRad: da})
			if err != nil {
				t.Fatalf("NewBerry(%v, %v): %v", ds, da, err)
			}
			for gamma := 0.0; gamma <= math.Pi; gamma += 0.02 {
				if _, dop := b.Evaluate(gamma); dop < 0 || dop > 1 {
					t.Fatalf("δs=%v δa=%v γ=%v: dop = %v, outside [0, 1]", ds, da, gamma, dop)
				}
			}
		}
	}
}

func TestBerry_AxisRotatedBetweenSunAndNeutralPoint(t *testing.T) {
	b, err := NewBerry(BerryParams{DeltaSunRad: 0.4, DeltaAntiRad: 0.3})
	if err != nil {
		t.Fatalf("NewBerry: %v", err)
	}
	cases := []struct {
		name  string
		gamma float64
		want  bool
	}{
		{"below_sun_node", 0.2, true},
		{"normal_zone_low", 0.6, false},
		{"normal_zone_mid", math.Pi / 2, false},
		{"beyond_arago", math.Pi - 0.1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := b.AxisRotated(tc.gamma); got != tc.want {
				t.Errorf("AxisRotated(%v) = %v, want %v", tc.gamma, got, tc.want)
			}
		})
	}
}

func TestBerry_RayleighLimitNeverRotates(t *testing.T) {
	b, _ := NewBerry(BerryParams{})
	for gamma := 0.01; gamma < math.Pi; gamma += 0.1 {
		if b.AxisRotated(gamma) {
			t.Fatalf("AxisRotated(%v) = true for zero separations", gamma)
		}
	}
}

func TestBerryParams_Validate(t *testing.T) {
	cases := []struct {
		name    string
		p       BerryParams
		wantErr bool
	}{
		{"zero", BerryParams{}, false},
		{"typical", BerryParams{DeltaSunRad: 0.3, DeltaAntiRad: 0.2}, false},
		{"negative_sun", BerryParams{DeltaSunRad: -0.1}, true},
		{"negative_anti", BerryParams{DeltaAntiRad: -0.1}, true},
		{"nan", BerryParams{DeltaSunRad: math.NaN()}, true},
		{"inf", BerryParams{DeltaAntiRad: math.Inf(1)}, true},
		{"crossing", BerryParams{DeltaSunRad: 2, DeltaAntiRad: 2}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tc.wantErr && err != nil {
				var pe *ParamError
				if !errors.As(err, &pe) {
					t.Errorf("error is %T, want *ParamError", err)
				}
			}
		})
	}
}

func TestBerryParams_FitWarnings(t *testing.T) {
	if ws := (BerryParams{DeltaSunRad: 0.3, DeltaAntiRad: 0.5}).FitWarnings(); len(ws) != 0 {
		t.Errorf("in-range params produced warnings: %v", ws)
	}
	ws := BerryParams{DeltaSunRad: 0.9, DeltaAntiRad: 0.7}.FitWarnings()
	if len(ws) != 2 {
		t.Fatalf("got %d warnings, want 2: %v", len(ws), ws)
	}
	// Warnings are advisory: the model must still construct and evaluate.
	b, err := NewBerry(BerryParams{DeltaSunRad: 0.9, DeltaAntiRad: 0.7})
	if err != nil {
		t.Fatalf("NewBerry with out-of-fit params: %v", err)
	}
	if _, dop := b.Evaluate(1.0); dop < 0 || dop > 1 {
		t.Errorf("out-of-fit evaluation left [0, 1]: %v", dop)
	}
}
