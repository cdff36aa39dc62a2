// Package config loads and validates the synthesizer's YAML configuration.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes caps the size of a file Load is willing to read.
const MaxConfigFileBytes = 1 << 20

// ConfigError reports a configuration value outside its valid domain.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Msg)
}

// SkyConfig selects the scattering model and the radiance distribution.
type SkyConfig struct {
	Model        string  `yaml:"model"`          // "rayleigh", "berry" or "pan"
	DeltaSunDeg  float64 `yaml:"delta_sun_deg"`  // berry: neutral-point separation above the sun
	DeltaAntiDeg float64 `yaml:"delta_anti_deg"` // berry: separation above the antisolar point
	MaxDoP       float64 `yaml:"max_dop"`        // pan: polarization ceiling (0,1]; 0 = model default
	CIEType      int     `yaml:"cie_type"`       // CIE standard sky 1-15; 0 = flat radiance
}

// CameraConfig describes the pixel-grid sensor behind an upward lens.
type CameraConfig struct {
	Rows           int     `yaml:"rows"`
	Cols           int     `yaml:"cols"`
	PixelPitchUm   float64 `yaml:"pixel_pitch_um"`
	FocalLengthUm  float64 `yaml:"focal_length_um"`
	Projection     string  `yaml:"projection"`       // rectilinear, stereographic, equidistant, equisolid, orthographic
	MinAltitudeDeg float64 `yaml:"min_altitude_deg"` // pixels imaging below this altitude are masked
	// MosaicDeg is the micro-polarizer tile as a square grid of angles in
	// degrees, row-major. Empty selects the 90/45/135/0 quad.
	MosaicDeg  [][]float64 `yaml:"mosaic_deg"`
	JitterDeg  float64     `yaml:"jitter_deg"` // per-pixel etching tolerance
	JitterSeed uint64      `yaml:"jitter_seed"`
}

// CompoundConfig describes the ring-arranged ommatidial sensor.
type CompoundConfig struct {
	Rings            int       `yaml:"rings"`
	OmmatidiaPerRing int       `yaml:"ommatidia_per_ring"`
	MaxZenithDeg     float64   `yaml:"max_zenith_deg"`
	OrientationsDeg  []float64 `yaml:"orientations_deg"`
}

// CustomConfig lists explicit viewing directions as [alt, az] degree pairs.
type CustomConfig struct {
	DirectionsDeg   [][]float64 `yaml:"directions_deg"`
	OrientationsDeg []float64   `yaml:"orientations_deg"`
	ToleranceDeg    float64     `yaml:"tolerance_deg"` // duplicate-direction rejection; 0 skips
}

// SensorConfig selects the sensor geometry and the analyzer chain shared
// by all kinds.
type SensorConfig struct {
	Kind            string         `yaml:"kind"`             // "camera", "compound" or "custom"
	ExtinctionRatio float64        `yaml:"extinction_ratio"` // polarizer efficiency (0,1]; 0 = ideal
	BitDepth        int            `yaml:"bit_depth"`        // ADC resolution in bits; 0 = no quantization
	Saturation      float64        `yaml:"saturation"`       // full-scale fraction (0,1]; 0 = 1
	Camera          CameraConfig   `yaml:"camera"`
	Compound        CompoundConfig `yaml:"compound"`
	Custom          CustomConfig   `yaml:"custom"`
}

// NoiseConfig selects the response perturbation.
type NoiseConfig struct {
	Kind        string  `yaml:"kind"`         // "none", "gaussian_snr", "additive" or "shot"
	SNR         float64 `yaml:"snr"`          // gaussian_snr: signal-to-noise ratio
	Sigma       float64 `yaml:"sigma"`        // additive: absolute standard deviation
	PhotonScale float64 `yaml:"photon_scale"` // shot: photons per response unit
}

// RunConfig drives the frame series.
type RunConfig struct {
	Sun         string  `yaml:"sun"` // "fixed" or "ephemeris"
	FixedAltDeg float64 `yaml:"fixed_alt_deg"`
	FixedAzDeg  float64 `yaml:"fixed_az_deg"`
	SiteLatDeg  float64 `yaml:"site_lat_deg"`
	SiteLonDeg  float64 `yaml:"site_lon_deg"` // east positive
	Start       string  `yaml:"start"`        // RFC 3339 timestamp of frame 0
	StepSeconds int     `yaml:"step_seconds"` // frame spacing
	Frames      int     `yaml:"frames"`
	Seed        uint64  `yaml:"seed"`
	Workers     int     `yaml:"workers"` // 0 = CPU count
}

// ClickHouseConfig locates the recordings table. Credentials come from
// the environment (CLICKHOUSE_USER / CLICKHOUSE_PASSWORD).
type ClickHouseConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
}

// MQTTConfig locates the live-feed broker. Credentials come from the
// environment (MQTT_USER / MQTT_PASSWORD).
type MQTTConfig struct {
	Broker     string `yaml:"broker"`
	Topic      string `yaml:"topic"`
	ClientID   string `yaml:"client_id"`
	IntervalMs int    `yaml:"interval_ms"` // spacing between published frames
}

// OutputConfig selects the dataset sink.
type OutputConfig struct {
	Kind       string           `yaml:"kind"`   // "csv", "clickhouse" or "mqtt"
	Dir        string           `yaml:"dir"`    // csv: output directory
	RunID      string           `yaml:"run_id"` // empty = derived from the start time
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // empty = console only
}

// Config aggregates all application configuration.
type Config struct {
	Sky     SkyConfig     `yaml:"sky"`
	Sensor  SensorConfig  `yaml:"sensor"`
	Noise   NoiseConfig   `yaml:"noise"`
	Run     RunConfig     `yaml:"run"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// ValidateConfigPath accepts only .yaml files living directly in a
// directory named "configs", which keeps user-supplied -config values
// from wandering across the filesystem.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config path %q must live in a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the validated configuration.
func Load(path string) (*Config, error) {
	if err := ValidateConfigPath(path); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file %q is %d bytes, limit is %d", path, info.Size(), MaxConfigFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills zero values with documented defaults.
func (c *Config) applyDefaults() {
	if c.Sky.Model == "" {
		c.Sky.Model = "rayleigh"
	}
	if c.Sensor.Kind == "" {
		c.Sensor.Kind = "camera"
	}
	if c.Sensor.ExtinctionRatio == 0 {
		c.Sensor.ExtinctionRatio = 1
	}
	if c.Sensor.Saturation == 0 {
		c.Sensor.Saturation = 1
	}
	if c.Sensor.Camera.Projection == "" {
		c.Sensor.Camera.Projection = "equidistant"
	}
	if c.Sensor.Compound.MaxZenithDeg == 0 {
		c.Sensor.Compound.MaxZenithDeg = 60
	}
	if len(c.Sensor.Compound.OrientationsDeg) == 0 {
		c.Sensor.Compound.OrientationsDeg = []float64{0, 45, 90, 135}
	}
	if len(c.Sensor.Custom.OrientationsDeg) == 0 {
		c.Sensor.Custom.OrientationsDeg = []float64{0, 45, 90, 135}
	}
	if c.Noise.Kind == "" {
		c.Noise.Kind = "none"
	}
	if c.Run.Sun == "" {
		c.Run.Sun = "fixed"
	}
	if c.Run.Frames == 0 {
		c.Run.Frames = 1
	}
	if c.Run.StepSeconds == 0 {
		c.Run.StepSeconds = 60
	}
	if c.Output.Kind == "" {
		c.Output.Kind = "csv"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "out"
	}
	if c.Output.ClickHouse.Addr == "" {
		c.Output.ClickHouse.Addr = "localhost:9000"
	}
	if c.Output.ClickHouse.Database == "" {
		c.Output.ClickHouse.Database = "default"
	}
	if c.Output.MQTT.Broker == "" {
		c.Output.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.Output.MQTT.Topic == "" {
		c.Output.MQTT.Topic = "skylumos/recordings"
	}
	if c.Output.MQTT.ClientID == "" {
		c.Output.MQTT.ClientID = "skylumos"
	}
	if c.Output.MQTT.IntervalMs == 0 {
		c.Output.MQTT.IntervalMs = 100
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) validate() error {
	if err := c.Sky.validate(); err != nil {
		return err
	}
	if err := c.Sensor.validate(); err != nil {
		return err
	}
	if err := c.Noise.validate(); err != nil {
		return err
	}
	if err := c.Run.validate(); err != nil {
		return err
	}
	if err := c.Output.validate(); err != nil {
		return err
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "logging.level", Msg: "must be debug, info, warn or error"}
	}
	return nil
}

func (s *SkyConfig) validate() error {
	switch s.Model {
	case "rayleigh", "berry", "pan":
	default:
		return &ConfigError{Field: "sky.model", Msg: "must be rayleigh, berry or pan"}
	}
	if bad(s.DeltaSunDeg) || s.DeltaSunDeg < 0 || s.DeltaSunDeg > 90 {
		return &ConfigError{Field: "sky.delta_sun_deg", Msg: "must be in [0, 90]"}
	}
	if bad(s.DeltaAntiDeg) || s.DeltaAntiDeg < 0 || s.DeltaAntiDeg > 90 {
		return &ConfigError{Field: "sky.delta_anti_deg", Msg: "must be in [0, 90]"}
	}
	if bad(s.MaxDoP) || s.MaxDoP < 0 || s.MaxDoP > 1 {
		return &ConfigError{Field: "sky.max_dop", Msg: "must be in [0, 1]"}
	}
	if s.CIEType < 0 || s.CIEType > 15 {
		return &ConfigError{Field: "sky.cie_type", Msg: "must be 0 (flat) or a CIE type 1-15"}
	}
	return nil
}

func (s *SensorConfig) validate() error {
	if bad(s.ExtinctionRatio) || s.ExtinctionRatio <= 0 || s.ExtinctionRatio > 1 {
		return &ConfigError{Field: "sensor.extinction_ratio", Msg: "must be in (0, 1]"}
	}
	if s.BitDepth < 0 || s.BitDepth > 32 {
		return &ConfigError{Field: "sensor.bit_depth", Msg: "must be 0 (off) or in [1, 32]"}
	}
	if bad(s.Saturation) || s.Saturation <= 0 || s.Saturation > 1 {
		return &ConfigError{Field: "sensor.saturation", Msg: "must be in (0, 1]"}
	}
	switch s.Kind {
	case "camera":
		return s.Camera.validate()
	case "compound":
		return s.Compound.validate()
	case "custom":
		return s.Custom.validate()
	}
	return &ConfigError{Field: "sensor.kind", Msg: "must be camera, compound or custom"}
}

func (c *CameraConfig) validate() error {
	if c.Rows < 1 {
		return &ConfigError{Field: "sensor.camera.rows", Msg: "must be at least 1"}
	}
	if c.Cols < 1 {
		return &ConfigError{Field: "sensor.camera.cols", Msg: "must be at least 1"}
	}
	if bad(c.PixelPitchUm) || c.PixelPitchUm <= 0 {
		return &ConfigError{Field: "sensor.camera.pixel_pitch_um", Msg: "must be positive"}
	}
	if bad(c.FocalLengthUm) || c.FocalLengthUm <= 0 {
		return &ConfigError{Field: "sensor.camera.focal_length_um", Msg: "must be positive"}
	}
	switch c.Projection {
	case "rectilinear", "stereographic", "equidistant", "equisolid", "orthographic":
	default:
		return &ConfigError{Field: "sensor.camera.projection", Msg: "must be rectilinear, stereographic, equidistant, equisolid or orthographic"}
	}
	if bad(c.MinAltitudeDeg) || c.MinAltitudeDeg < -90 || c.MinAltitudeDeg > 90 {
		return &ConfigError{Field: "sensor.camera.min_altitude_deg", Msg: "must be in [-90, 90]"}
	}
	if bad(c.JitterDeg) || c.JitterDeg < 0 || c.JitterDeg >= 90 {
		return &ConfigError{Field: "sensor.camera.jitter_deg", Msg: "must be in [0, 90)"}
	}
	if len(c.MosaicDeg) > 0 {
		step := len(c.MosaicDeg)
		for _, row := range c.MosaicDeg {
			if len(row) != step {
				return &ConfigError{Field: "sensor.camera.mosaic_deg", Msg: "must be a square grid of angles"}
			}
			for _, a := range row {
				if bad(a) || a < 0 || a >= 180 {
					return &ConfigError{Field: "sensor.camera.mosaic_deg", Msg: "angles must be in [0, 180)"}
				}
			}
		}
	}
	return nil
}

func (c *CompoundConfig) validate() error {
	if c.Rings < 1 {
		return &ConfigError{Field: "sensor.compound.rings", Msg: "must be at least 1"}
	}
	if c.OmmatidiaPerRing < 1 {
		return &ConfigError{Field: "sensor.compound.ommatidia_per_ring", Msg: "must be at least 1"}
	}
	if bad(c.MaxZenithDeg) || c.MaxZenithDeg <= 0 || c.MaxZenithDeg > 90 {
		return &ConfigError{Field: "sensor.compound.max_zenith_deg", Msg: "must be in (0, 90]"}
	}
	return validateOrientationsDeg("sensor.compound.orientations_deg", c.OrientationsDeg)
}

func (c *CustomConfig) validate() error {
	if len(c.DirectionsDeg) == 0 {
		return &ConfigError{Field: "sensor.custom.directions_deg", Msg: "must list at least one [alt, az] pair"}
	}
	for _, d := range c.DirectionsDeg {
		if len(d) != 2 {
			return &ConfigError{Field: "sensor.custom.directions_deg", Msg: "entries must be [alt, az] pairs"}
		}
		if bad(d[0]) || d[0] < -90 || d[0] > 90 {
			return &ConfigError{Field: "sensor.custom.directions_deg", Msg: "altitudes must be in [-90, 90]"}
		}
		if bad(d[1]) {
			return &ConfigError{Field: "sensor.custom.directions_deg", Msg: "azimuths must be finite"}
		}
	}
	if bad(c.ToleranceDeg) || c.ToleranceDeg < 0 || c.ToleranceDeg > 180 {
		return &ConfigError{Field: "sensor.custom.tolerance_deg", Msg: "must be in [0, 180]"}
	}
	return validateOrientationsDeg("sensor.custom.orientations_deg", c.OrientationsDeg)
}

func (n *NoiseConfig) validate() error {
	switch n.Kind {
	case "none":
		return nil
	case "gaussian_snr":
		if bad(n.SNR) || n.SNR <= 0 {
			return &ConfigError{Field: "noise.snr", Msg: "must be positive"}
		}
		return nil
	case "additive":
		if bad(n.Sigma) || n.Sigma < 0 {
			return &ConfigError{Field: "noise.sigma", Msg: "must be non-negative"}
		}
		return nil
	case "shot":
		if bad(n.PhotonScale) || n.PhotonScale <= 0 {
			return &ConfigError{Field: "noise.photon_scale", Msg: "must be positive"}
		}
		return nil
	}
	return &ConfigError{Field: "noise.kind", Msg: "must be none, gaussian_snr, additive or shot"}
}

func (r *RunConfig) validate() error {
	switch r.Sun {
	case "fixed":
		if bad(r.FixedAltDeg) || r.FixedAltDeg < -90 || r.FixedAltDeg > 90 {
			return &ConfigError{Field: "run.fixed_alt_deg", Msg: "must be in [-90, 90]"}
		}
		if bad(r.FixedAzDeg) {
			return &ConfigError{Field: "run.fixed_az_deg", Msg: "must be finite"}
		}
	case "ephemeris":
		if bad(r.SiteLatDeg) || r.SiteLatDeg < -90 || r.SiteLatDeg > 90 {
			return &ConfigError{Field: "run.site_lat_deg", Msg: "must be in [-90, 90]"}
		}
		if bad(r.SiteLonDeg) || r.SiteLonDeg < -180 || r.SiteLonDeg > 180 {
			return &ConfigError{Field: "run.site_lon_deg", Msg: "must be in [-180, 180]"}
		}
		if r.Start == "" {
			return &ConfigError{Field: "run.start", Msg: "is required when run.sun is ephemeris"}
		}
	default:
		return &ConfigError{Field: "run.sun", Msg: "must be fixed or ephemeris"}
	}
	if r.Start != "" {
		if _, err := time.Parse(time.RFC3339, r.Start); err != nil {
			return &ConfigError{Field: "run.start", Msg: "must be an RFC 3339 timestamp"}
		}
	}
	if r.StepSeconds < 1 {
		return &ConfigError{Field: "run.step_seconds", Msg: "must be at least 1"}
	}
	if r.Frames < 1 || r.Frames > 1_000_000 {
		return &ConfigError{Field: "run.frames", Msg: "must be in [1, 1000000]"}
	}
	if r.Workers < 0 || r.Workers > 4096 {
		return &ConfigError{Field: "run.workers", Msg: "must be in [0, 4096]"}
	}
	return nil
}

func (o *OutputConfig) validate() error {
	switch o.Kind {
	case "csv":
		if o.Dir == "" {
			return &ConfigError{Field: "output.dir", Msg: "must not be empty"}
		}
	case "clickhouse":
		if o.ClickHouse.Addr == "" {
			return &ConfigError{Field: "output.clickhouse.addr", Msg: "must not be empty"}
		}
		if o.ClickHouse.Database == "" {
			return &ConfigError{Field: "output.clickhouse.database", Msg: "must not be empty"}
		}
	case "mqtt":
		if o.MQTT.Broker == "" {
			return &ConfigError{Field: "output.mqtt.broker", Msg: "must not be empty"}
		}
		if o.MQTT.Topic == "" {
			return &ConfigError{Field: "output.mqtt.topic", Msg: "must not be empty"}
		}
		if o.MQTT.IntervalMs < 1 {
			return &ConfigError{Field: "output.mqtt.interval_ms", Msg: "must be at least 1"}
		}
	default:
		return &ConfigError{Field: "output.kind", Msg: "must be csv, clickhouse or mqtt"}
	}
	return nil
}

func validateOrientationsDeg(field string, orients []float64) error {
	if len(orients) == 0 {
		return &ConfigError{Field: field, Msg: "must list at least one angle"}
	}
	for _, o := range orients {
		if bad(o) || o < 0 || o >= 180 {
			return &ConfigError{Field: field, Msg: "angles must be in [0, 180)"}
		}
	}
	return nil
}

// bad reports a float that can never be a valid configuration value.
func bad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// StartTime returns the parsed run.start, or the zero time when unset.
// Load has already rejected unparseable values.
func (c *Config) StartTime() time.Time {
	if c.Run.Start == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, c.Run.Start)
	if err != nil {
		return time.Time{}
	}
	return t
}

// StepDuration returns the spacing between consecutive frames.
func (c *Config) StepDuration() time.Duration {
	return time.Duration(c.Run.StepSeconds) * time.Second
}

// MQTTInterval returns the spacing between published frames.
func (c *Config) MQTTInterval() time.Duration {
	return time.Duration(c.Output.MQTT.IntervalMs) * time.Millisecond
}

// MinAltitudeRad returns the camera masking floor in radians.
func (c *CameraConfig) MinAltitudeRad() float64 {
	return degToRad(c.MinAltitudeDeg)
}

// JitterRad returns the etching tolerance in radians.
func (c *CameraConfig) JitterRad() float64 {
	return degToRad(c.JitterDeg)
}

// MaxZenithRad returns the outermost ring's zenith angle in radians.
func (c *CompoundConfig) MaxZenithRad() float64 {
	return degToRad(c.MaxZenithDeg)
}

// OrientationsRad returns the polarizer set in radians.
func (c *CompoundConfig) OrientationsRad() []float64 {
	return degSliceToRad(c.OrientationsDeg)
}

// OrientationsRad returns the polarizer set in radians.
func (c *CustomConfig) OrientationsRad() []float64 {
	return degSliceToRad(c.OrientationsDeg)
}

func degToRad(d float64) float64 {
	return d * math.Pi / 180
}

func degSliceToRad(deg []float64) []float64 {
	rad := make([]float64, len(deg))
	for i, d := range deg {
		rad[i] = degToRad(d)
	}
	return rad
}
