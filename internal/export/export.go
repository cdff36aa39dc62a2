// Package export writes synthesized recordings to dataset sinks: CSV
// files, a ClickHouse table, or an MQTT feed emulating a live sensor.
package export

import (
	"math"
	"strconv"
	"time"

	"github.com/taciochi/skylumos/pkg/synth"
)

// RecordRow is one (frame, element) sample flattened for tabular sinks.
// Angles are exported in degrees; masked elements keep their NaN
// response so downstream tooling can tell "dark" from "absent".
type RecordRow struct {
	RunID          string
	Frame          int
	Time           time.Time
	SunAltDeg      float64
	SunAzDeg       float64
	Element        int
	AltDeg         float64
	AzDeg          float64
	OrientationDeg float64
	Masked         bool
	Response       float64
}

// Flatten expands a recording into one row per sensor element, in
// element order.
func Flatten(runID string, rec synth.Recording) []RecordRow {
	rows := make([]RecordRow, len(rec.Responses))
	sunAlt := radToDeg(rec.Sun.ElevationRad)
	sunAz := radToDeg(rec.Sun.Direction.Azimuth())
	for i, e := range rec.Geometry.Elements {
		rows[i] = RecordRow{
			RunID:          runID,
			Frame:          rec.Frame,
			Time:           rec.Time,
			SunAltDeg:      sunAlt,
			SunAzDeg:       sunAz,
			Element:        i,
			AltDeg:         radToDeg(e.Direction.Altitude()),
			AzDeg:          radToDeg(e.Direction.Azimuth()),
			OrientationDeg: radToDeg(e.OrientationRad),
			Masked:         e.Masked,
			Response:       rec.Responses[i],
		}
	}
	return rows
}

func (RecordRow) CSVHeader() []string {
	return []string{
		"run_id", "frame", "timestamp_ns",
		"sun_alt_deg", "sun_az_deg",
		"element", "alt_deg", "az_deg", "orientation_deg",
		"masked", "response",
	}
}

func (r *RecordRow) CSVRow() []string {
	ns := int64(0)
	if !r.Time.IsZero() {
		ns = r.Time.UnixNano()
	}
	return []string{
		r.RunID,
		itoa(r.Frame),
		itoa64(ns),
		ftoa(r.SunAltDeg, 4), ftoa(r.SunAzDeg, 4),
		itoa(r.Element),
		ftoa(r.AltDeg, 4), ftoa(r.AzDeg, 4), ftoa(r.OrientationDeg, 4),
		strconv.FormatBool(r.Masked),
		gtoa(r.Response),
	}
}

func radToDeg(r float64) float64 {
	return r * 180 / math.Pi
}

func itoa(i int) string { return strconv.Itoa(i) }

func itoa64(i int64) string { return strconv.FormatInt(i, 10) }

// ftoa formats with a fixed number of decimals, for angle columns.
func ftoa(f float64, prec int) string { return strconv.FormatFloat(f, 'f', prec, 64) }

// gtoa formats with full round-trip precision, for response values.
func gtoa(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
