package sensor

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/rand"

	"github.com/taciochi/skylumos/pkg/skygeom"
)

// Projection selects the lens conjugation that maps the radial distance
// ρ of a pixel from the optical axis to the altitude of the sky point
// imaged onto it.
type Projection string

const (
	// ProjRectilinear is the thin-lens (gnomonic) conjugation,
	// alt = π/2 − atan(ρ/f).
	ProjRectilinear Projection = "rectilinear"
	// ProjStereographic keeps local shapes, alt = π/2 − 2·atan(ρ/2f).
	ProjStereographic Projection = "stereographic"
	// ProjEquidistant is the linear fisheye, alt = π/2 − ρ/f.
	ProjEquidistant Projection = "equidistant"
	// ProjEquisolid preserves solid angle, alt = π/2 − 2·asin(ρ/2f).
	ProjEquisolid Projection = "equisolid"
	// ProjOrthographic is the sine-law fisheye, alt = π/2 − asin(ρ/f).
	ProjOrthographic Projection = "orthographic"
)

// ParseProjection maps a configuration string to a Projection.
func ParseProjection(s string) (Projection, error) {
	switch p := Projection(strings.ToLower(strings.TrimSpace(s))); p {
	case ProjRectilinear, ProjStereographic, ProjEquidistant, ProjEquisolid, ProjOrthographic:
		return p, nil
	default:
		return "", fmt.Errorf("unknown lens projection %q (want rectilinear, stereographic, equidistant, equisolid or orthographic)", s)
	}
}

// altitude conjugates a radial offset ρ through the lens. ok is false
// when ρ lies outside the lens image circle and no sky point maps to
// the pixel.
func (p Projection) altitude(rho, focal float64) (altRad float64, ok bool) {
	switch p {
	case ProjRectilinear:
		return math.Pi/2 - math.Atan(rho/focal), true
	case ProjStereographic:
		return math.Pi/2 - 2*math.Atan(rho/(2*focal)), true
	case ProjEquidistant:
		return math.Pi/2 - rho/focal, true
	case ProjEquisolid:
		x := rho / (2 * focal)
		if x > 1 {
			return 0, false
		}
		return math.Pi/2 - 2*math.Asin(x), true
	case ProjOrthographic:
		x := rho / focal
		if x > 1 {
			return 0, false
		}
		return math.Pi/2 - math.Asin(x), true
	}
	return 0, false
}

// CameraConfig describes a sky-looking camera: a Rows×Cols pixel grid
// of PixelPitchUm spacing behind a lens of FocalLengthUm, carrying a
// micro-polarizer mosaic.
type CameraConfig struct {
	Rows, Cols    int
	PixelPitchUm  float64
	FocalLengthUm float64
	Projection    Projection

	// MinAltitudeRad masks pixels that image the sky below this
	// altitude. The zero value masks everything below the horizon; set
	// it negative to keep below-horizon directions.
	MinAltitudeRad float64

	// Mosaic is the micro-polarizer layout. Nil selects the default
	// four-directional quad tile.
	Mosaic Mosaic

	// OrientationJitterRad adds a manufacturing defect to every etched
	// orientation: a uniform offset in [−tol, +tol] drawn per pixel
	// from a source seeded with JitterSeed. Zero disables the draw.
	OrientationJitterRad float64
	JitterSeed           uint64
}

func (cfg CameraConfig) validate() error {
	if cfg.Rows < 1 {
		return &ConfigError{Field: "rows", Msg: "must be at least 1"}
	}
	if cfg.Cols < 1 {
		return &ConfigError{Field: "cols", Msg: "must be at least 1"}
	}
	if !(cfg.PixelPitchUm > 0) || math.IsInf(cfg.PixelPitchUm, 0) {
		return &ConfigError{Field: "pixel_pitch_um", Msg: "must be positive and finite"}
	}
	if !(cfg.FocalLengthUm > 0) || math.IsInf(cfg.FocalLengthUm, 0) {
		return &ConfigError{Field: "focal_length_um", Msg: "must be positive and finite"}
	}
	if _, err := ParseProjection(string(cfg.Projection)); err != nil {
		return &ConfigError{Field: "projection", Msg: err.Error()}
	}
	if math.IsNaN(cfg.MinAltitudeRad) || cfg.MinAltitudeRad < -math.Pi/2 || cfg.MinAltitudeRad > math.Pi/2 {
		return &ConfigError{Field: "min_altitude_rad", Msg: "must be in [-π/2, π/2]"}
	}
	if math.IsNaN(cfg.OrientationJitterRad) || cfg.OrientationJitterRad < 0 || cfg.OrientationJitterRad >= math.Pi/2 {
		return &ConfigError{Field: "orientation_jitter_rad", Msg: "must be in [0, π/2)"}
	}
	if cfg.Mosaic != nil {
		if err := cfg.Mosaic.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NewCamera back-projects every pixel of the grid through the lens and
// pairs it with its mosaic orientation. Elements are ordered row-major
// from the top-left pixel. Pixels outside the lens image circle or
// below the altitude floor are kept in place but Masked; their place
// in the jitter stream is kept too, so masking never shifts the
// orientations of their neighbours.
//
// The camera looks straight up with the top of the image toward north.
// Sensor-plane offsets therefore mirror the compass: a sky point east
// of the zenith images onto the left half of the sensor.
func NewCamera(cfg CameraConfig) (Geometry, error) {
	if err := cfg.validate(); err != nil {
		return Geometry{}, err
	}
	mosaic := cfg.Mosaic
	if mosaic == nil {
		mosaic = DefaultQuadMosaic()
	}

	var rng *rand.Rand
	if cfg.OrientationJitterRad > 0 {
		rng = rand.New(rand.NewSource(cfg.JitterSeed))
	}

	halfW := float64(cfg.Cols-1) / 2
	halfH := float64(cfg.Rows-1) / 2
	elems := make([]Element, 0, cfg.Rows*cfg.Cols)
	for i := 0; i < cfg.Rows; i++ {
		for j := 0; j < cfg.Cols; j++ {
			jitter := 0.0
			if rng != nil {
				jitter = cfg.OrientationJitterRad * (1 - 2*rng.Float64())
			}
			orientation := foldOrientation(mosaic.angleAt(i, j) + jitter)

			dx := (float64(j) - halfW) * cfg.PixelPitchUm // toward image right
			dy := (halfH - float64(i)) * cfg.PixelPitchUm // toward image top
			alt, ok := cfg.Projection.altitude(math.Hypot(dx, dy), cfg.FocalLengthUm)
			if !ok {
				elems = append(elems, Element{OrientationRad: orientation, Masked: true})
				continue
			}

			az := math.Atan2(-dx, dy)
			if az < 0 {
				az += 2 * math.Pi
			}
			elems = append(elems, Element{
				Direction:      skygeom.FromSpherical(math.Pi/2-alt, az),
				OrientationRad: orientation,
				Masked:         alt < cfg.MinAltitudeRad,
			})
		}
	}
	return Geometry{Kind: KindCamera, Elements: elems}, nil
}

// foldOrientation reduces a polarizer axis to [0, π).
func foldOrientation(a float64) float64 {
	a = math.Mod(a, math.Pi)
	if a < 0 {
		a += math.Pi
	}
	return a
}
