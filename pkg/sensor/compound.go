package sensor

import (
	"math"

	"github.com/taciochi/skylumos/pkg/skygeom"
)

// unitTol bounds how far a custom direction may stray from unit norm.
const unitTol = 1e-9

// CompoundConfig describes an ommatidial sensor: rings of viewing
// directions at constant zenith angle, every direction sampling the
// full orientation set, the arrangement of polarization-sensitive
// dorsal rim ommatidia in insect eyes.
type CompoundConfig struct {
	// Rings is the number of zenith bands. Ring i sits at zenith angle
	// MaxZenithRad·(i+1)/Rings, so the band set spans (0, MaxZenithRad]
	// and never places an ommatidium on the degenerate zenith itself.
	Rings int
	// OmmatidiaPerRing spaces directions evenly in azimuth; odd rings
	// are staggered by half a step so neighbouring rings interleave.
	OmmatidiaPerRing int
	// MaxZenithRad is the outermost band's zenith angle, in (0, π/2].
	MaxZenithRad float64
	// OrientationsRad is the polarizer set carried by every
	// ommatidium, each in [0, π).
	OrientationsRad []float64
}

func (cfg CompoundConfig) validate() error {
	if cfg.Rings < 1 {
		return &ConfigError{Field: "rings", Msg: "must be at least 1"}
	}
	if cfg.OmmatidiaPerRing < 1 {
		return &ConfigError{Field: "ommatidia_per_ring", Msg: "must be at least 1"}
	}
	if !(cfg.MaxZenithRad > 0) || cfg.MaxZenithRad > math.Pi/2 {
		return &ConfigError{Field: "max_zenith_rad", Msg: "must be in (0, π/2]"}
	}
	return validateOrientations("orientations_rad", cfg.OrientationsRad)
}

// NewCompoundEye builds the ring arrangement. Elements are ordered
// ring-major from the innermost ring, ommatidia counterclockwise from
// north, with the orientation set innermost: the element count is
// Rings × OmmatidiaPerRing × len(OrientationsRad).
func NewCompoundEye(cfg CompoundConfig) (Geometry, error) {
	if err := cfg.validate(); err != nil {
		return Geometry{}, err
	}
	elems := make([]Element, 0, cfg.Rings*cfg.OmmatidiaPerRing*len(cfg.OrientationsRad))
	azStep := 2 * math.Pi / float64(cfg.OmmatidiaPerRing)
	for ring := 0; ring < cfg.Rings; ring++ {
		zenith := cfg.MaxZenithRad * float64(ring+1) / float64(cfg.Rings)
		stagger := 0.0
		if ring%2 == 1 {
			stagger = azStep / 2
		}
		for j := 0; j < cfg.OmmatidiaPerRing; j++ {
			dir := skygeom.FromSpherical(zenith, float64(j)*azStep+stagger)
			for _, o := range cfg.OrientationsRad {
				elems = append(elems, Element{Direction: dir, OrientationRad: o})
			}
		}
	}
	return Geometry{Kind: KindCompound, Elements: elems}, nil
}

// CustomConfig lists explicit viewing directions, for irregular
// sensors and for replaying a measured device layout.
type CustomConfig struct {
	// Directions must be unit vectors.
	Directions []skygeom.Direction
	// OrientationsRad is sampled by every direction, each in [0, π).
	OrientationsRad []float64
	// ToleranceRad rejects a pair of directions closer than this
	// separation as duplicates. Zero skips the check.
	ToleranceRad float64
}

func (cfg CustomConfig) validate() error {
	if len(cfg.Directions) == 0 {
		return &ConfigError{Field: "directions", Msg: "must have at least one direction"}
	}
	for _, d := range cfg.Directions {
		if !d.IsUnit(unitTol) {
			return &ConfigError{Field: "directions", Msg: "must be unit vectors"}
		}
	}
	if math.IsNaN(cfg.ToleranceRad) || cfg.ToleranceRad < 0 || cfg.ToleranceRad > math.Pi {
		return &ConfigError{Field: "tolerance_rad", Msg: "must be in [0, π]"}
	}
	if cfg.ToleranceRad > 0 {
		for i := 0; i < len(cfg.Directions); i++ {
			for j := i + 1; j < len(cfg.Directions); j++ {
				if skygeom.ScatteringAngle(cfg.Directions[i], cfg.Directions[j]) < cfg.ToleranceRad {
					return &ConfigError{Field: "directions", Msg: "contain a duplicate pair closer than the tolerance"}
				}
			}
		}
	}
	return validateOrientations("orientations_rad", cfg.OrientationsRad)
}

// NewCustom builds a geometry from an explicit direction list, ordered
// direction-major with the orientation set innermost.
func NewCustom(cfg CustomConfig) (Geometry, error) {
	if err := cfg.validate(); err != nil {
		return Geometry{}, err
	}
	elems := make([]Element, 0, len(cfg.Directions)*len(cfg.OrientationsRad))
	for _, d := range cfg.Directions {
		for _, o := range cfg.OrientationsRad {
			elems = append(elems, Element{Direction: d, OrientationRad: o})
		}
	}
	return Geometry{Kind: KindCustom, Elements: elems}, nil
}

func validateOrientations(field string, orients []float64) error {
	if len(orients) == 0 {
		return &ConfigError{Field: field, Msg: "must have at least one orientation"}
	}
	for _, o := range orients {
		if math.IsNaN(o) || o < 0 || o >= math.Pi {
			return &ConfigError{Field: field, Msg: "must be in [0, π)"}
		}
	}
	return nil
}
