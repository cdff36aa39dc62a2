package skygeom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// degeneracyTol bounds the norm of a tangent-plane projection below
// which a direction pair is treated as geometrically degenerate.
const degeneracyTol = 1e-12

// ScatteringAngle returns the angle γ ∈ [0, π] between the sun and
// view directions as seen by the observer. The dot product is clamped
// to [-1, 1] before the arccosine so floating-point overshoot on
// nearly parallel vectors cannot leave the arccos domain.
func ScatteringAngle(sun, view Direction) float64 {
	return math.Acos(clamp(r3.Dot(sun.Vec, view.Vec), -1, 1))
}

// PolarizationAngle returns the position angle α ∈ [0, π) of the
// great-circle arc running from view toward sun, measured in the
// tangent plane at view from the local meridian (toward the zenith),
// increasing toward east. The scattering plane contains this arc; the
// polarized E-vector of singly scattered light lies perpendicular to
// it. Polarization is an axis rather than a direction, so the angle is
// folded modulo π.
//
// The angle is undefined when view points at the zenith (no meridian
// exists there) or when view is parallel or antiparallel to sun (the
// arc direction vanishes). Those cases return 0. Degenerate reports
// them; the degree of polarization is ≈0 near γ=0 anyway, so the
// sentinel carries no physical weight.
func PolarizationAngle(sun, view Direction) float64 {
	up, east, ok := tangentBasis(view)
	if !ok {
		return 0
	}
	t := tangentToward(sun, view)
	if r3.Norm(t) < degeneracyTol {
		return 0
	}
	a := math.Atan2(r3.Dot(t, east), r3.Dot(t, up))
	a = math.Mod(a, math.Pi)
	if a < 0 {
		a += math.Pi
	}
	return a
}

// Degenerate reports whether the (sun, view) pair falls where
// PolarizationAngle has no defined value: view at the zenith, or view
// aligned with the sun or its antipode.
func Degenerate(sun, view Direction) bool {
	if _, _, ok := tangentBasis(view); !ok {
		return true
	}
	return r3.Norm(tangentToward(sun, view)) < degeneracyTol
}

// tangentToward projects the sun direction onto the tangent plane at
// view, giving the great-circle departure direction toward the sun.
func tangentToward(sun, view Direction) r3.Vec {
	return r3.Sub(sun.Vec, r3.Scale(r3.Dot(sun.Vec, view.Vec), view.Vec))
}

// tangentBasis returns the local toward-zenith and toward-east unit
// tangents at view. ok is false at the zenith itself.
func tangentBasis(view Direction) (up, east r3.Vec, ok bool) {
	zhat := r3.Vec{Z: 1}
	u := r3.Sub(zhat, r3.Scale(view.Vec.Z, view.Vec))
	n := r3.Norm(u)
	if n < degeneracyTol {
		return r3.Vec{}, r3.Vec{}, false
	}
	up = r3.Scale(1/n, u)
	east = r3.Unit(r3.Cross(view.Vec, zhat))
	return up, east, true
}
