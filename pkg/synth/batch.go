package synth

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/taciochi/skylumos/pkg/sensor"
	"github.com/taciochi/skylumos/pkg/skyfield"
	"github.com/taciochi/skylumos/pkg/skymodel"
)

// Frame names one sun state of a time series.
type Frame struct {
	// Index identifies the frame in its recording and partitions the
	// seed space: frame i draws its noise from Options.Seed + i, no
	// matter which worker picks it up or in what order. Indices must
	// be non-negative and unique within a batch.
	Index int
	Time  time.Time
	Sun   skyfield.SunState
}

// Batch synthesizes a series of frames over a worker pool. Frames are
// independent: the geometry is shared read-only and every frame binds
// its own field and noise source, so the pool is coordination-free.
type Batch struct {
	// Workers caps the concurrent frame evaluations. Non-positive
	// selects the machine's CPU count.
	Workers int
}

type batchJob struct {
	pos   int
	frame Frame
}

type batchResult struct {
	pos int
	rec Recording
	err error
}

// Run synthesizes every frame and returns the recordings in input
// order. The model is rebound to each frame's sun elevation and the
// optional radiance distribution is shared across frames. On context
// cancellation the partial work is discarded and ctx's error returned.
func (b Batch) Run(ctx context.Context, frames []Frame, model skymodel.Model, radiance *skymodel.CIESky, geom sensor.Geometry, opts Options) ([]Recording, error) {
	if len(frames) == 0 {
		return nil, nil
	}
	// Options problems would fail every frame identically; surface
	// them before spinning up the pool.
	if _, err := opts.normalized(); err != nil {
		return nil, err
	}

	workers := b.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(frames) {
		workers = len(frames)
	}

	jobs := make(chan batchJob, workers*2)
	results := make(chan batchResult, workers*2)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				rec, err := synthesizeFrame(job.frame, model, radiance, geom, opts)
				select {
				case results <- batchResult{pos: job.pos, rec: rec, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for pos, f := range frames {
			select {
			case jobs <- batchJob{pos: pos, frame: f}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]Recording, len(frames))
	received := 0
	var firstErr error
	for res := range results {
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
		out[res.pos] = res.rec
		received++
	}
	if firstErr != nil {
		return nil, firstErr
	}
	// Results are only ever dropped when the context fires.
	if received != len(frames) {
		return nil, ctx.Err()
	}
	return out, nil
}

// synthesizeFrame binds one frame's field and seed and records it.
func synthesizeFrame(f Frame, model skymodel.Model, radiance *skymodel.CIESky, geom sensor.Geometry, opts Options) (Recording, error) {
	field := skyfield.New(f.Sun, model)
	if radiance != nil {
		field = field.WithRadiance(radiance)
	}
	opts.Seed += uint64(f.Index)
	rec, err := Synthesize(field, geom, opts)
	if err != nil {
		return Recording{}, err
	}
	rec.Frame = f.Index
	rec.Time = f.Time
	return rec, nil
}
