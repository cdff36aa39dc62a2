// Package skygeom provides the spherical geometry used to sample the
// sky dome: unit viewing directions and the angular relations between
// a sun direction and a viewing direction.
package skygeom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Direction is a unit vector on the viewing sphere, expressed in a
// local east-north-up frame: X east, Y north, Z up.
type Direction struct {
	Vec r3.Vec
}

// FromSpherical builds a Direction from a zenith angle and an azimuth,
// both in radians. Zenith angle 0 points straight up and π/2 lies on
// the horizon; azimuth is measured from north toward east.
func FromSpherical(zenithRad, azimuthRad float64) Direction {
	sz := math.Sin(zenithRad)
	return Direction{Vec: r3.Vec{
		X: sz * math.Sin(azimuthRad),
		Y: sz * math.Cos(azimuthRad),
		Z: math.Cos(zenithRad),
	}}
}

// FromAltAz builds a Direction from an altitude and an azimuth in
// degrees, the convention ephemeris providers speak: altitude 0° is
// the horizon and 90° the zenith, azimuth from north toward east.
func FromAltAz(altDeg, azDeg float64) Direction {
	alt := altDeg * math.Pi / 180
	az := azDeg * math.Pi / 180
	ca := math.Cos(alt)
	return Direction{Vec: r3.Vec{
		X: ca * math.Sin(az),
		Y: ca * math.Cos(az),
		Z: math.Sin(alt),
	}}
}

// FromVec normalizes v into a Direction.
func FromVec(v r3.Vec) Direction {
	return Direction{Vec: r3.Unit(v)}
}

// Zenith returns the zenith angle in radians (0 = straight up, π/2 = horizon).
func (d Direction) Zenith() float64 {
	return math.Acos(clamp(d.Vec.Z, -1, 1))
}

// Azimuth returns the azimuth in radians, from north toward east, in [0, 2π).
func (d Direction) Azimuth() float64 {
	az := math.Atan2(d.Vec.X, d.Vec.Y)
	if az < 0 {
		az += 2 * math.Pi
	}
	return az
}

// Altitude returns the elevation above the horizon in radians.
func (d Direction) Altitude() float64 {
	return math.Pi/2 - d.Zenith()
}

// IsUnit reports whether the underlying vector has unit norm within tol.
func (d Direction) IsUnit(tol float64) bool {
	return math.Abs(r3.Norm(d.Vec)-1) <= tol
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
