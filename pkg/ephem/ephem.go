// Package ephem supplies sun positions to the sky field: a provider
// maps a timestamp to the sun state seen from a site. The synthesis
// core never computes astronomy itself; it consumes whatever provider
// the caller wires in.
package ephem

import (
	"time"

	"github.com/taciochi/skylumos/pkg/skyfield"
)

// Provider resolves the sun for a moment in time.
type Provider interface {
	SunState(t time.Time) (skyfield.SunState, error)
}

// Fixed pins the sun to one horizontal position regardless of time,
// for scripted scenes and tests.
type Fixed struct {
	AltDeg, AzDeg float64
}

func (f Fixed) SunState(time.Time) (skyfield.SunState, error) {
	return skyfield.SunFromAltAz(f.AltDeg, f.AzDeg), nil
}
