// Package sensor builds the discrete viewing geometry of polarization
// sensors: which sky directions a device samples and the polarizer
// orientation each sample passes through. Three constructions are
// supported: a camera behind a fisheye or rectilinear lens with a
// micro-polarizer mosaic, a compound eye of ommatidial directions in
// rings, and an explicit custom direction list.
//
// A geometry is built once per sensor configuration and reused across
// sun states; construction validates eagerly and the result is
// read-only.
package sensor

import (
	"fmt"

	"github.com/taciochi/skylumos/pkg/skygeom"
)

// Kind names the construction a Geometry came from.
type Kind string

const (
	KindCamera   Kind = "camera"
	KindCompound Kind = "compound"
	KindCustom   Kind = "custom"
)

// Element is one sample of the sky: a viewing direction with the
// single polarizer orientation measured along it. Sensors that sample
// several orientations per direction (mosaic tiles, ommatidia with
// orthogonal receptor pairs) are flattened into one Element per
// (direction, orientation) pair.
type Element struct {
	Direction skygeom.Direction
	// OrientationRad is the polarizer transmission axis in [0, π),
	// measured like the angle of polarization: from the local meridian
	// toward east.
	OrientationRad float64
	// Masked marks camera pixels whose back-projection misses the sky:
	// outside the lens image circle or below the altitude floor. A
	// masked element keeps its place in the ordering but its Direction
	// may be the zero value and must not be evaluated.
	Masked bool
}

// Geometry is an ordered, immutable collection of sensor elements.
// Cameras order elements row-major, compound eyes ring-major with the
// orientation set innermost; the order is part of the contract so
// recordings can be mapped back onto the device.
type Geometry struct {
	Kind     Kind
	Elements []Element
}

// Active returns the number of unmasked elements.
func (g Geometry) Active() int {
	n := 0
	for _, e := range g.Elements {
		if !e.Masked {
			n++
		}
	}
	return n
}

// ConfigError reports a sensor configuration field outside its valid
// domain. All constructors return it eagerly rather than building a
// partially valid geometry.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("sensor config: %s %s", e.Field, e.Msg)
}
