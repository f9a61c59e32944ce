package tracker

import (
	"math"
	"time"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

const earthRadiusMeters = 6371000

// FilterConfig selects which location filters are active. With no filter
// active every fix is reported.
type FilterConfig struct {
	Time     bool
	Distance bool
	Accuracy bool

	TimeInterval time.Duration
	// DistanceInterval is in meters.
	DistanceInterval float64
}

// Active returns the names of the enabled filters.
func (c FilterConfig) Active() []string {
	var names []string
	if c.Time {
		names = append(names, "time")
	}
	if c.Distance {
		names = append(names, "distance")
	}
	if c.Accuracy {
		names = append(names, "accuracy")
	}
	return names
}

// Accept reports whether next should be reported given the last reported
// fix. Every active filter must accept it. The first fix is always accepted.
func (c FilterConfig) Accept(last *core.Location, next core.Location) bool {
	if last == nil {
		return true
	}
	if c.Time && next.SampleTime.Sub(last.SampleTime) < c.TimeInterval {
		return false
	}
	moved := Distance(*last, next)
	if c.Distance && moved < c.DistanceInterval {
		return false
	}
	if c.Accuracy && moved < next.Accuracy {
		return false
	}
	return true
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b core.Location) float64 {
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
