package ephem

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"

	"github.com/taciochi/skylumos/pkg/skyfield"
	"github.com/taciochi/skylumos/pkg/skygeom"
)

// Site computes the sun's horizontal position for a ground location
// from the apparent solar ephemeris: geometric altitude, no refraction
// model. Timestamps are converted to UTC; longitudes are east-positive.
type Site struct {
	latRad float64
	lonRad float64
}

// NewSite validates the coordinates, latitude in [-90, 90] and
// longitude in [-180, 180] degrees.
func NewSite(latDeg, lonDeg float64) (Site, error) {
	if math.IsNaN(latDeg) || latDeg < -90 || latDeg > 90 {
		return Site{}, fmt.Errorf("site latitude must be in [-90, 90], got %v", latDeg)
	}
	if math.IsNaN(lonDeg) || lonDeg < -180 || lonDeg > 180 {
		return Site{}, fmt.Errorf("site longitude must be in [-180, 180], got %v", lonDeg)
	}
	return Site{
		latRad: latDeg * math.Pi / 180,
		lonRad: lonDeg * math.Pi / 180,
	}, nil
}

// SunState resolves the sun at t. Positions below the horizon are
// returned as-is with a negative elevation; the caller decides whether
// a night frame makes sense.
func (s Site) SunState(t time.Time) (skyfield.SunState, error) {
	jd := julian.TimeToJD(t.UTC())
	ra, dec := solar.ApparentEquatorial(jd)

	// Local hour angle from the apparent sidereal rotation angle.
	ha := sidereal.Apparent(jd).Angle().Rad() + s.lonRad - ra.Rad()

	sinAlt := dec.Sin()*math.Sin(s.latRad) +
		dec.Cos()*math.Cos(s.latRad)*math.Cos(ha)
	alt := math.Asin(clamp(sinAlt, -1, 1))

	// Azimuth from north toward east, with the hour angle fixing the
	// east/west half. Zenith passages and the poles collapse the
	// denominator; the clamp resolves them to the meridian.
	cosAz := (dec.Sin() - math.Sin(alt)*math.Sin(s.latRad)) /
		(math.Cos(alt) * math.Cos(s.latRad))
	az := math.Acos(clamp(cosAz, -1, 1))
	if math.Sin(ha) > 0 {
		az = 2*math.Pi - az
	}

	return skyfield.SunState{
		Direction:    skygeom.FromSpherical(math.Pi/2-alt, az),
		ElevationRad: alt,
	}, nil
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
