package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/taciochi/skylumos/internal/config"
	"github.com/taciochi/skylumos/internal/export"
	"github.com/taciochi/skylumos/internal/logger"
	"github.com/taciochi/skylumos/pkg/ephem"
	"github.com/taciochi/skylumos/pkg/sensor"
	"github.com/taciochi/skylumos/pkg/skyfield"
	"github.com/taciochi/skylumos/pkg/skygeom"
	"github.com/taciochi/skylumos/pkg/skymodel"
	"github.com/taciochi/skylumos/pkg/synth"
)

func main() {
	// CLI flags
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	outDir := flag.String("out", "", "override output directory for the csv sink")
	frames := flag.Int("frames", 0, "override frame count (1-1000000); 0 keeps the config value")
	seed := flag.Uint64("seed", 0, "override the base noise seed; 0 keeps the config value")
	probe := flag.Bool("probe", false, "print a sky-field sample grid and exit without synthesizing")
	flag.Parse()

	// Sink credentials may live in a .env file next to the binary.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Validate CLI overrides (only non-zero values are applied; zero means "use config default")
	if err := validateCLIOverrides(*outDir, *frames); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}

	// Apply CLI overrides to config
	applyOverrides(cfg, overrides{
		OutDir: *outDir,
		Frames: *frames,
		Seed:   *seed,
	})

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer logger.Sync()

	if err := run(ctx, cfg, *probe); err != nil {
		logger.Error("run failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

// run builds the synthesis pipeline from the configuration and drives
// it end to end: model, sensor, sun provider, batch, export.
func run(ctx context.Context, cfg *config.Config, probe bool) error {
	model, err := buildModel(cfg)
	if err != nil {
		return fmt.Errorf("build sky model: %w", err)
	}
	warnFitRange(model)

	radiance, err := buildRadiance(cfg)
	if err != nil {
		return fmt.Errorf("build radiance distribution: %w", err)
	}

	if probe {
		return runProbe(cfg, model, radiance)
	}

	geom, err := buildGeometry(cfg)
	if err != nil {
		return fmt.Errorf("build sensor geometry: %w", err)
	}
	provider, err := buildProvider(cfg)
	if err != nil {
		return fmt.Errorf("build sun provider: %w", err)
	}
	series, err := buildFrames(cfg, provider)
	if err != nil {
		return err
	}

	logger.Info("synthesizing",
		zap.String("model", model.Name()),
		zap.String("sensor", string(geom.Kind)),
		zap.Int("elements", len(geom.Elements)),
		zap.Int("active", geom.Active()),
		zap.Int("frames", len(series)),
		zap.Int("workers", cfg.Run.Workers),
		zap.Uint64("seed", cfg.Run.Seed))

	started := time.Now()
	recs, err := synth.Batch{Workers: cfg.Run.Workers}.Run(ctx, series, model, radiance, geom, buildOptions(cfg))
	if err != nil {
		return fmt.Errorf("synthesize batch: %w", err)
	}

	id := runID(cfg, started)
	if err := exportRun(ctx, cfg, buildMeta(cfg, geom, model, id), recs); err != nil {
		return fmt.Errorf("export run: %w", err)
	}

	logger.Info("run complete",
		zap.String("run_id", id),
		zap.Int("frames", len(recs)),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

// runProbe evaluates the field over a coarse alt/az grid and prints it,
// a quick sanity check of a model/sun combination before committing to
// a full dataset run.
func runProbe(cfg *config.Config, model skymodel.Model, radiance *skymodel.CIESky) error {
	provider, err := buildProvider(cfg)
	if err != nil {
		return fmt.Errorf("build sun provider: %w", err)
	}
	sun, err := provider.SunState(cfg.StartTime())
	if err != nil {
		return fmt.Errorf("resolve sun: %w", err)
	}
	field := skyfield.New(sun, model)
	if radiance != nil {
		field = field.WithRadiance(radiance)
	}

	fmt.Printf("model %s, sun at alt %.2f° az %.2f°\n",
		model.Name(), radToDeg(sun.ElevationRad), radToDeg(sun.Direction.Azimuth()))
	fmt.Println("   alt°     az°  gamma°     dop    aop°  intensity")
	for alt := 15.0; alt <= 90; alt += 15 {
		for az := 0.0; az < 360; az += 90 {
			s := field.At(skygeom.FromAltAz(alt, az))
			fmt.Printf("%7.1f %7.1f %7.2f %7.3f %7.2f %10.4f\n",
				alt, az, radToDeg(s.ScatteringRad), s.DoP, radToDeg(s.AoPRad), s.Intensity)
			if alt == 90 {
				break // the zenith is one direction, not four
			}
		}
	}
	return nil
}

// validateCLIOverrides checks that non-zero CLI overrides are within valid ranges.
// Zero values are ignored (they mean "use config default").
func validateCLIOverrides(outDir string, frames int) error {
	if outDir != "" && strings.TrimSpace(outDir) == "" {
		return fmt.Errorf("out must name a directory, got %q", outDir)
	}
	if frames != 0 {
		if frames < 1 || frames > 1_000_000 {
			return fmt.Errorf("frames must be between 1 and 1000000, got %d", frames)
		}
	}
	return nil
}

// overrides carries the CLI values that take precedence over the file
// configuration. Zero values mean "use the config".
type overrides struct {
	OutDir string
	Frames int
	Seed   uint64
}

// applyOverrides mutates cfg with overrides. Only non-zero override values are applied.
func applyOverrides(cfg *config.Config, ov overrides) {
	if ov.OutDir != "" {
		cfg.Output.Dir = ov.OutDir
	}
	if ov.Frames > 0 {
		cfg.Run.Frames = ov.Frames
	}
	if ov.Seed > 0 {
		cfg.Run.Seed = ov.Seed
	}
}

// buildModel constructs the scattering model selected by the sky section.
func buildModel(cfg *config.Config) (skymodel.Model, error) {
	kind, err := skymodel.ParseKind(cfg.Sky.Model)
	if err != nil {
		return nil, err
	}
	return skymodel.New(kind, skymodel.Params{
		DeltaSunRad:  degToRad(cfg.Sky.DeltaSunDeg),
		DeltaAntiRad: degToRad(cfg.Sky.DeltaAntiDeg),
		MaxDoP:       cfg.Sky.MaxDoP,
	})
}

// warnFitRange logs empirical coefficients outside their fitted range.
// The run proceeds; the models stay defined everywhere.
func warnFitRange(model skymodel.Model) {
	if b, ok := model.(*skymodel.Berry); ok {
		for _, w := range b.Params().FitWarnings() {
			logger.Warn(w.String())
		}
	}
}

func buildRadiance(cfg *config.Config) (*skymodel.CIESky, error) {
	if cfg.Sky.CIEType == 0 {
		return nil, nil
	}
	return skymodel.NewCIESky(cfg.Sky.CIEType)
}

// buildGeometry constructs the sensor selected by the sensor section.
func buildGeometry(cfg *config.Config) (sensor.Geometry, error) {
	switch cfg.Sensor.Kind {
	case "camera":
		c := cfg.Sensor.Camera
		return sensor.NewCamera(sensor.CameraConfig{
			Rows:                 c.Rows,
			Cols:                 c.Cols,
			PixelPitchUm:         c.PixelPitchUm,
			FocalLengthUm:        c.FocalLengthUm,
			Projection:           sensor.Projection(c.Projection),
			MinAltitudeRad:       c.MinAltitudeRad(),
			Mosaic:               mosaicFromGrid(c.MosaicDeg),
			OrientationJitterRad: c.JitterRad(),
			JitterSeed:           c.JitterSeed,
		})
	case "compound":
		c := cfg.Sensor.Compound
		return sensor.NewCompoundEye(sensor.CompoundConfig{
			Rings:            c.Rings,
			OmmatidiaPerRing: c.OmmatidiaPerRing,
			MaxZenithRad:     c.MaxZenithRad(),
			OrientationsRad:  c.OrientationsRad(),
		})
	case "custom":
		c := cfg.Sensor.Custom
		dirs := make([]skygeom.Direction, len(c.DirectionsDeg))
		for i, d := range c.DirectionsDeg {
			dirs[i] = skygeom.FromAltAz(d[0], d[1])
		}
		return sensor.NewCustom(sensor.CustomConfig{
			Directions:      dirs,
			OrientationsRad: c.OrientationsRad(),
			ToleranceRad:    degToRad(c.ToleranceDeg),
		})
	}
	return sensor.Geometry{}, fmt.Errorf("unsupported sensor kind %q", cfg.Sensor.Kind)
}

// mosaicFromGrid converts the config's square grid of angles in degrees
// into mosaic cells with the grid size as tile pitch. An empty grid
// returns nil, selecting the sensor package's default quad tile.
func mosaicFromGrid(grid [][]float64) sensor.Mosaic {
	if len(grid) == 0 {
		return nil
	}
	step := len(grid)
	m := make(sensor.Mosaic, 0, step*step)
	for r, row := range grid {
		for c, angleDeg := range row {
			m = append(m, sensor.MosaicCell{
				AngleRad: degToRad(angleDeg),
				RowOff:   r,
				ColOff:   c,
				Step:     step,
			})
		}
	}
	return m
}

// buildNoise constructs the response perturbation selected by the noise
// section. Load has already validated kind and parameters.
func buildNoise(cfg *config.Config) synth.Noise {
	switch cfg.Noise.Kind {
	case "gaussian_snr":
		return synth.GaussianSNR{SNR: cfg.Noise.SNR}
	case "additive":
		return synth.AdditiveGaussian{Sigma: cfg.Noise.Sigma}
	case "shot":
		return synth.Shot{PhotonScale: cfg.Noise.PhotonScale}
	}
	return synth.NoNoise{}
}

func buildOptions(cfg *config.Config) synth.Options {
	opts := synth.Options{
		ExtinctionRatio: cfg.Sensor.ExtinctionRatio,
		Noise:           buildNoise(cfg),
		Seed:            cfg.Run.Seed,
	}
	if cfg.Sensor.BitDepth > 0 {
		opts.Quantizer = &synth.Quantizer{
			BitDepth:        cfg.Sensor.BitDepth,
			SaturationRatio: cfg.Sensor.Saturation,
		}
	}
	return opts
}

// buildProvider selects between the fixed sun and the ephemeris site.
func buildProvider(cfg *config.Config) (ephem.Provider, error) {
	switch cfg.Run.Sun {
	case "ephemeris":
		site, err := ephem.NewSite(cfg.Run.SiteLatDeg, cfg.Run.SiteLonDeg)
		if err != nil {
			return nil, err
		}
		return site, nil
	default:
		return ephem.Fixed{AltDeg: cfg.Run.FixedAltDeg, AzDeg: cfg.Run.FixedAzDeg}, nil
	}
}

// buildFrames resolves the sun for every frame of the series up front,
// so a provider failure aborts the run before any synthesis starts.
func buildFrames(cfg *config.Config, provider ephem.Provider) ([]synth.Frame, error) {
	start := cfg.StartTime()
	step := cfg.StepDuration()
	series := make([]synth.Frame, cfg.Run.Frames)
	for i := range series {
		var t time.Time
		if !start.IsZero() {
			t = start.Add(time.Duration(i) * step)
		}
		sun, err := provider.SunState(t)
		if err != nil {
			return nil, fmt.Errorf("sun state for frame %d: %w", i, err)
		}
		series[i] = synth.Frame{Index: i, Time: t, Sun: sun}
	}
	return series, nil
}

// runID names the run: the configured ID, or one derived from the
// start of the run so consecutive runs never collide on disk.
func runID(cfg *config.Config, started time.Time) string {
	if cfg.Output.RunID != "" {
		return cfg.Output.RunID
	}
	return "run-" + started.UTC().Format("20060102-150405")
}

func buildMeta(cfg *config.Config, geom sensor.Geometry, model skymodel.Model, id string) export.Meta {
	return export.Meta{
		RunID:           id,
		CreatedAt:       time.Now().UTC(),
		Model:           model.Name(),
		DeltaSunDeg:     cfg.Sky.DeltaSunDeg,
		DeltaAntiDeg:    cfg.Sky.DeltaAntiDeg,
		MaxDoP:          cfg.Sky.MaxDoP,
		CIEType:         cfg.Sky.CIEType,
		SensorKind:      string(geom.Kind),
		Elements:        len(geom.Elements),
		ActiveElements:  geom.Active(),
		ExtinctionRatio: cfg.Sensor.ExtinctionRatio,
		NoiseKind:       cfg.Noise.Kind,
		BitDepth:        cfg.Sensor.BitDepth,
		Seed:            cfg.Run.Seed,
		Frames:          cfg.Run.Frames,
	}
}

// exportRun hands the recordings to the configured sink. ClickHouse and
// MQTT credentials come from the environment, not the config file.
func exportRun(ctx context.Context, cfg *config.Config, meta export.Meta, recs []synth.Recording) error {
	switch cfg.Output.Kind {
	case "csv":
		_, err := export.CSVWriter{Dir: cfg.Output.Dir}.WriteRun(meta, recs)
		return err
	case "clickhouse":
		sink, err := export.OpenClickHouse(ctx,
			cfg.Output.ClickHouse.Addr,
			cfg.Output.ClickHouse.Database,
			os.Getenv("CLICKHOUSE_USER"),
			os.Getenv("CLICKHOUSE_PASSWORD"))
		if err != nil {
			return err
		}
		defer func() {
			if err := sink.Close(); err != nil {
				logger.Warn("close clickhouse sink", zap.Error(err))
			}
		}()
		return sink.WriteRun(ctx, meta, recs)
	case "mqtt":
		emitter, err := export.OpenMQTT(export.MQTTConfig{
			Broker:   cfg.Output.MQTT.Broker,
			Topic:    cfg.Output.MQTT.Topic,
			ClientID: cfg.Output.MQTT.ClientID,
			Username: os.Getenv("MQTT_USER"),
			Password: os.Getenv("MQTT_PASSWORD"),
			Interval: cfg.MQTTInterval(),
		})
		if err != nil {
			return err
		}
		defer emitter.Close()
		return emitter.PublishRun(ctx, meta, recs)
	}
	return fmt.Errorf("unsupported output kind %q", cfg.Output.Kind)
}

func degToRad(d float64) float64 {
	return d * math.Pi / 180
}

func radToDeg(r float64) float64 {
	return r * 180 / math.Pi
}
