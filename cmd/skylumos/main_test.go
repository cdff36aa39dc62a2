package main

import (
	"math"
	"testing"
	"time"

	"github.com/taciochi/skylumos/internal/config"
	"github.com/taciochi/skylumos/pkg/ephem"
	"github.com/taciochi/skylumos/pkg/sensor"
	"github.com/taciochi/skylumos/pkg/skymodel"
	"github.com/taciochi/skylumos/pkg/synth"
)

// ---------- validateCLIOverrides ----------

func TestValidateCLIOverrides_AllZero(t *testing.T) {
	if err := validateCLIOverrides("", 0); err != nil {
		t.Errorf("all zeros should be valid (use config defaults), got: %v", err)
	}
}

func TestValidateCLIOverrides_ValidBoundary(t *testing.T) {
	cases := []struct {
		name   string
		outDir string
		frames int
	}{
		{"min_frames", "", 1},
		{"max_frames", "", 1_000_000},
		{"out_dir", "datasets/run1", 0},
		{"both", "out", 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateCLIOverrides(tc.outDir, tc.frames); err != nil {
				t.Errorf("expected valid, got: %v", err)
			}
		})
	}
}

func TestValidateCLIOverrides_OutOfRange(t *testing.T) {
	cases := []struct {
		name   string
		outDir string
		frames int
	}{
		{"frames_negative", "", -1},
		{"frames_too_large", "", 1_000_001},
		{"out_dir_blank", "   ", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateCLIOverrides(tc.outDir, tc.frames); err == nil {
				t.Error("expected error for out-of-range value, got nil")
			}
		})
	}
}

// ---------- applyOverrides ----------

func newTestConfig() *config.Config {
	return &config.Config{
		Sky: config.SkyConfig{Model: "rayleigh"},
		Sensor: config.SensorConfig{
			Kind:            "camera",
			ExtinctionRatio: 1,
			Saturation:      1,
			Camera: config.CameraConfig{
				Rows: 4, Cols: 4,
				PixelPitchUm:  3.45,
				FocalLengthUm: 1800,
				Projection:    "equidistant",
			},
			Compound: config.CompoundConfig{
				Rings: 3, OmmatidiaPerRing: 8, MaxZenithDeg: 60,
				OrientationsDeg: []float64{0, 90},
			},
			Custom: config.CustomConfig{
				DirectionsDeg:   [][]float64{{45, 0}, {45, 90}},
				OrientationsDeg: []float64{0, 45, 90, 135},
			},
		},
		Noise: config.NoiseConfig{Kind: "none"},
		Run: config.RunConfig{
			Sun:         "fixed",
			FixedAltDeg: 30,
			FixedAzDeg:  180,
			StepSeconds: 60,
			Frames:      3,
			Seed:        7,
		},
		Output:  config.OutputConfig{Kind: "csv", Dir: "out"},
		Logging: config.LoggingConfig{Level: "info"},
	}
}

func TestApplyOverrides_NonZero(t *testing.T) {
	cfg := newTestConfig()
	applyOverrides(cfg, overrides{OutDir: "elsewhere", Frames: 99, Seed: 1234})

	if cfg.Output.Dir != "elsewhere" {
		t.Errorf("Output.Dir = %q, want \"elsewhere\"", cfg.Output.Dir)
	}
	if cfg.Run.Frames != 99 {
		t.Errorf("Run.Frames = %d, want 99", cfg.Run.Frames)
	}
	if cfg.Run.Seed != 1234 {
		t.Errorf("Run.Seed = %d, want 1234", cfg.Run.Seed)
	}
}

func TestApplyOverrides_ZeroLeavesUnchanged(t *testing.T) {
	cfg := newTestConfig()
	origDir := cfg.Output.Dir
	origFrames := cfg.Run.Frames
	origSeed := cfg.Run.Seed

	applyOverrides(cfg, overrides{})

	if cfg.Output.Dir != origDir {
		t.Errorf("Output.Dir changed: %q != %q", cfg.Output.Dir, origDir)
	}
	if cfg.Run.Frames != origFrames {
		t.Errorf("Run.Frames changed: %d != %d", cfg.Run.Frames, origFrames)
	}
	if cfg.Run.Seed != origSeed {
		t.Errorf("Run.Seed changed: %d != %d", cfg.Run.Seed, origSeed)
	}
}

func TestApplyOverrides_Partial(t *testing.T) {
	cfg := newTestConfig()
	origDir := cfg.Output.Dir
	origSeed := cfg.Run.Seed

	applyOverrides(cfg, overrides{Frames: 10})

	if cfg.Run.Frames != 10 {
		t.Errorf("Run.Frames = %d, want 10", cfg.Run.Frames)
	}
	if cfg.Output.Dir != origDir {
		t.Errorf("Output.Dir should be unchanged: %q != %q", cfg.Output.Dir, origDir)
	}
	if cfg.Run.Seed != origSeed {
		t.Errorf("Run.Seed should be unchanged: %d != %d", cfg.Run.Seed, origSeed)
	}
}

// ---------- buildModel ----------

func TestBuildModel_Kinds(t *testing.T) {
	cases := []struct {
		model string
		want  string
	}{
		{"rayleigh", "rayleigh"},
		{"berry", "berry"},
		{"pan", "pan"},
	}
	for _, tc := range cases {
		t.Run(tc.model, func(t *testing.T) {
			cfg := newTestConfig()
			cfg.Sky.Model = tc.model
			cfg.Sky.DeltaSunDeg = 2
			cfg.Sky.DeltaAntiDeg = 1
			m, err := buildModel(cfg)
			if err != nil {
				t.Fatal(err)
			}
			if m.Name() != tc.want {
				t.Errorf("Name() = %q, want %q", m.Name(), tc.want)
			}
		})
	}
}

func TestBuildModel_BerryCarriesSeparations(t *testing.T) {
	cfg := newTestConfig()
	cfg.Sky.Model = "berry"
	cfg.Sky.DeltaSunDeg = 3
	cfg.Sky.DeltaAntiDeg = 2

	m, err := buildModel(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, ok := m.(*skymodel.Berry)
	if !ok {
		t.Fatalf("buildModel returned %T, want *skymodel.Berry", m)
	}
	p := b.Params()
	if math.Abs(p.DeltaSunRad-3*math.Pi/180) > 1e-15 {
		t.Errorf("DeltaSunRad = %v, want 3°", p.DeltaSunRad)
	}
	if math.Abs(p.DeltaAntiRad-2*math.Pi/180) > 1e-15 {
		t.Errorf("DeltaAntiRad = %v, want 2°", p.DeltaAntiRad)
	}
}

func TestBuildModel_UnknownKind(t *testing.T) {
	cfg := newTestConfig()
	cfg.Sky.Model = "mie"
	if _, err := buildModel(cfg); err == nil {
		t.Error("expected error for unknown model, got nil")
	}
}

// ---------- buildRadiance ----------

func TestBuildRadiance(t *testing.T) {
	cfg := newTestConfig()
	sky, err := buildRadiance(cfg)
	if err != nil || sky != nil {
		t.Errorf("cie_type 0 should build no distribution, got %v, %v", sky, err)
	}

	cfg.Sky.CIEType = 12
	sky, err = buildRadiance(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if sky.Type() != 12 {
		t.Errorf("Type() = %d, want 12", sky.Type())
	}
}

// ---------- buildGeometry ----------

func TestBuildGeometry_Camera(t *testing.T) {
	cfg := newTestConfig()
	geom, err := buildGeometry(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if geom.Kind != sensor.KindCamera {
		t.Errorf("Kind = %q, want camera", geom.Kind)
	}
	if len(geom.Elements) != 16 {
		t.Errorf("elements = %d, want rows×cols = 16", len(geom.Elements))
	}
}

func TestBuildGeometry_Compound(t *testing.T) {
	cfg := newTestConfig()
	cfg.Sensor.Kind = "compound"
	geom, err := buildGeometry(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if geom.Kind != sensor.KindCompound {
		t.Errorf("Kind = %q, want compound", geom.Kind)
	}
	if want := 3 * 8 * 2; len(geom.Elements) != want {
		t.Errorf("elements = %d, want rings×ommatidia×orientations = %d", len(geom.Elements), want)
	}
}

func TestBuildGeometry_Custom(t *testing.T) {
	cfg := newTestConfig()
	cfg.Sensor.Kind = "custom"
	geom, err := buildGeometry(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if geom.Kind != sensor.KindCustom {
		t.Errorf("Kind = %q, want custom", geom.Kind)
	}
	if want := 2 * 4; len(geom.Elements) != want {
		t.Errorf("elements = %d, want directions×orientations = %d", len(geom.Elements), want)
	}
}

func TestBuildGeometry_UnknownKind(t *testing.T) {
	cfg := newTestConfig()
	cfg.Sensor.Kind = "starfield"
	if _, err := buildGeometry(cfg); err == nil {
		t.Error("expected error for unknown sensor kind, got nil")
	}
}

// ---------- mosaicFromGrid ----------

func TestMosaicFromGrid_EmptySelectsDefault(t *testing.T) {
	if m := mosaicFromGrid(nil); m != nil {
		t.Errorf("empty grid should return nil (default mosaic), got %v", m)
	}
}

func TestMosaicFromGrid_TilesTheSensor(t *testing.T) {
	cfg := newTestConfig()
	cfg.Sensor.Camera.MosaicDeg = [][]float64{
		{0, 45},
		{90, 135},
	}
	geom, err := buildGeometry(cfg)
	if err != nil {
		t.Fatal(err)
	}

	wantDeg := func(row, col int) float64 {
		return cfg.Sensor.Camera.MosaicDeg[row%2][col%2]
	}
	for i, e := range geom.Elements {
		row, col := i/4, i%4
		want := wantDeg(row, col) * math.Pi / 180
		if math.Abs(e.OrientationRad-want) > 1e-15 {
			t.Errorf("pixel (%d,%d): orientation %v, want %v", row, col, e.OrientationRad, want)
		}
	}
}

func TestMosaicFromGrid_SingleCellIsUniform(t *testing.T) {
	cfg := newTestConfig()
	cfg.Sensor.Camera.MosaicDeg = [][]float64{{30}}
	geom, err := buildGeometry(cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := 30 * math.Pi / 180
	for i, e := range geom.Elements {
		if math.Abs(e.OrientationRad-want) > 1e-15 {
			t.Errorf("element %d: orientation %v, want uniform %v", i, e.OrientationRad, want)
		}
	}
}

// ---------- buildNoise / buildOptions ----------

func TestBuildNoise_Kinds(t *testing.T) {
	cfg := newTestConfig()

	if _, ok := buildNoise(cfg).(synth.NoNoise); !ok {
		t.Error("kind none should build NoNoise")
	}

	cfg.Noise = config.NoiseConfig{Kind: "gaussian_snr", SNR: 40}
	if g, ok := buildNoise(cfg).(synth.GaussianSNR); !ok || g.SNR != 40 {
		t.Errorf("kind gaussian_snr built %#v", buildNoise(cfg))
	}

	cfg.Noise = config.NoiseConfig{Kind: "additive", Sigma: 0.25}
	if a, ok := buildNoise(cfg).(synth.AdditiveGaussian); !ok || a.Sigma != 0.25 {
		t.Errorf("kind additive built %#v", buildNoise(cfg))
	}

	cfg.Noise = config.NoiseConfig{Kind: "shot", PhotonScale: 1000}
	if s, ok := buildNoise(cfg).(synth.Shot); !ok || s.PhotonScale != 1000 {
		t.Errorf("kind shot built %#v", buildNoise(cfg))
	}
}

func TestBuildOptions_Quantizer(t *testing.T) {
	cfg := newTestConfig()
	if opts := buildOptions(cfg); opts.Quantizer != nil {
		t.Error("bit_depth 0 should disable quantization")
	}

	cfg.Sensor.BitDepth = 12
	cfg.Sensor.Saturation = 0.9
	opts := buildOptions(cfg)
	if opts.Quantizer == nil {
		t.Fatal("bit_depth 12 should enable quantization")
	}
	if opts.Quantizer.BitDepth != 12 || opts.Quantizer.SaturationRatio != 0.9 {
		t.Errorf("quantizer = %+v", opts.Quantizer)
	}
	if opts.Seed != cfg.Run.Seed {
		t.Errorf("Seed = %d, want %d", opts.Seed, cfg.Run.Seed)
	}
}

// ---------- buildProvider / buildFrames ----------

func TestBuildProvider_Fixed(t *testing.T) {
	cfg := newTestConfig()
	provider, err := buildProvider(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := provider.(ephem.Fixed); !ok {
		t.Fatalf("provider is %T, want ephem.Fixed", provider)
	}
	sun, err := provider.SunState(time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sun.ElevationRad-30*math.Pi/180) > 1e-12 {
		t.Errorf("fixed sun elevation = %v rad, want 30°", sun.ElevationRad)
	}
}

func TestBuildProvider_Ephemeris(t *testing.T) {
	cfg := newTestConfig()
	cfg.Run.Sun = "ephemeris"
	cfg.Run.SiteLatDeg = 48.2
	cfg.Run.SiteLonDeg = 16.4
	provider, err := buildProvider(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := provider.(ephem.Site); !ok {
		t.Fatalf("provider is %T, want ephem.Site", provider)
	}
}

func TestBuildFrames_SeriesSpacing(t *testing.T) {
	cfg := newTestConfig()
	cfg.Run.Start = "2024-06-21T10:00:00Z"
	cfg.Run.StepSeconds = 30
	cfg.Run.Frames = 4

	series, err := buildFrames(cfg, ephem.Fixed{AltDeg: 45})
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 4 {
		t.Fatalf("frames = %d, want 4", len(series))
	}
	start, _ := time.Parse(time.RFC3339, cfg.Run.Start)
	for i, f := range series {
		if f.Index != i {
			t.Errorf("frame %d: index %d", i, f.Index)
		}
		if want := start.Add(time.Duration(i) * 30 * time.Second); !f.Time.Equal(want) {
			t.Errorf("frame %d: time %v, want %v", i, f.Time, want)
		}
	}
}

func TestBuildFrames_NoStartLeavesTimesZero(t *testing.T) {
	cfg := newTestConfig()
	series, err := buildFrames(cfg, ephem.Fixed{AltDeg: 45})
	if err != nil {
		t.Fatal(err)
	}
	for i, f := range series {
		if !f.Time.IsZero() {
			t.Errorf("frame %d: time %v, want zero without run.start", i, f.Time)
		}
	}
}

// ---------- runID ----------

func TestRunID(t *testing.T) {
	cfg := newTestConfig()
	started := time.Date(2024, 6, 21, 10, 30, 0, 0, time.UTC)

	if id := runID(cfg, started); id != "run-20240621-103000" {
		t.Errorf("derived runID = %q", id)
	}

	cfg.Output.RunID = "bench-1"
	if id := runID(cfg, started); id != "bench-1" {
		t.Errorf("configured runID = %q, want bench-1", id)
	}
}
