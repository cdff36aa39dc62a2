package synth

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/taciochi/skylumos/pkg/skyfield"
	"github.com/taciochi/skylumos/pkg/skymodel"
)

func TestBatch_MatchesSequentialSeedPartitioning(t *testing.T) {
	model, err := skymodel.NewPan(skymodel.PanParams{MaxDoP: 0.9})
	if err != nil {
		t.Fatal(err)
	}
	geom := testCamera(t)
	opts := Options{Noise: GaussianSNR{SNR: 60}, Seed: 99}

	start := time.Date(2024, 6, 21, 8, 0, 0, 0, time.UTC)
	frames := make([]Frame, 4)
	for i := range frames {
		frames[i] = Frame{
			Index: i,
			Time:  start.Add(time.Duration(i) * time.Minute),
			Sun:   skyfield.SunFromAltAz(float64(10+10*i), 180),
		}
	}

	recs, err := Batch{Workers: 3}.Run(context.Background(), frames, model, nil, geom, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != len(frames) {
		t.Fatalf("recording count = %d, want %d", len(recs), len(frames))
	}

	for i, f := range frames {
		if recs[i].Frame != i {
			t.Errorf("recording %d: frame index = %d", i, recs[i].Frame)
		}
		if !recs[i].Time.Equal(f.Time) {
			t.Errorf("recording %d: time = %v, want %v", i, recs[i].Time, f.Time)
		}
		single := opts
		single.Seed = opts.Seed + uint64(i)
		want, err := Synthesize(skyfield.New(f.Sun, model), geom, single)
		if err != nil {
			t.Fatal(err)
		}
		for k := range want.Responses {
			if math.Float64bits(recs[i].Responses[k]) != math.Float64bits(want.Responses[k]) {
				t.Fatalf("frame %d element %d: batch %v != sequential %v",
					i, k, recs[i].Responses[k], want.Responses[k])
			}
		}
	}
}

func TestBatch_Cancellation(t *testing.T) {
	geom := testCamera(t)
	frames := make([]Frame, 256)
	for i := range frames {
		frames[i] = Frame{Index: i, Sun: skyfield.SunFromAltAz(30, 180)}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recs, err := Batch{Workers: 4}.Run(ctx, frames, skymodel.Rayleigh{}, nil, geom, Options{})
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if recs != nil {
		t.Error("cancelled run must not return partial recordings")
	}
}

func TestBatch_EmptyFrames(t *testing.T) {
	recs, err := Batch{}.Run(context.Background(), nil, skymodel.Rayleigh{}, nil, testCamera(t), Options{})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if recs != nil {
		t.Errorf("recordings = %v, want nil", recs)
	}
}

func TestBatch_InvalidOptionsFailFast(t *testing.T) {
	frames := []Frame{{Index: 0, Sun: skyfield.SunFromAltAz(20, 90)}}
	_, err := Batch{}.Run(context.Background(), frames, skymodel.Rayleigh{}, nil, testCamera(t), Options{ExtinctionRatio: 2})
	if err == nil {
		t.Fatal("expected options validation error")
	}
}

func TestBatch_RadianceSharedAcrossFrames(t *testing.T) {
	sky, err := skymodel.NewCIESky(12)
	if err != nil {
		t.Fatal(err)
	}
	geom := testCamera(t)
	frames := []Frame{{Index: 0, Sun: skyfield.SunFromAltAz(40, 200)}}

	lit, err := Batch{Workers: 1}.Run(context.Background(), frames, skymodel.Rayleigh{}, sky, geom, Options{})
	if err != nil {
		t.Fatal(err)
	}
	plain, err := Batch{Workers: 1}.Run(context.Background(), frames, skymodel.Rayleigh{}, nil, geom, Options{})
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for k := range lit[0].Responses {
		if lit[0].Responses[k] != plain[0].Responses[k] {
			same = false
			break
		}
	}
	if same {
		t.Error("attaching a radiance distribution must change the responses")
	}
}
