// Package source provides simulated device position sources.
package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

// ParsePosition parses a "lat,lon" pair.
func ParsePosition(s string) (core.Location, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return core.Location{}, fmt.Errorf("position %q is not a lat,lon pair", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 {
		return core.Location{}, fmt.Errorf("position %q has an invalid latitude", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil || lon < -180 || lon > 180 {
		return core.Location{}, fmt.Errorf("position %q has an invalid longitude", s)
	}
	return core.Location{Latitude: lat, Longitude: lon}, nil
}

// ParsePositions parses every "lat,lon" pair in ss.
func ParsePositions(ss []string) ([]core.Location, error) {
	out := make([]core.Location, 0, len(ss))
	for _, s := range ss {
		l, err := ParsePosition(s)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Route replays a fixed list of positions, one per interval, looping at the
// end. A single position makes it a stationary source.
type Route struct {
	points   []core.Location
	interval time.Duration
	// Accuracy is attached to every emitted fix, in meters.
	Accuracy float64
	now      func() time.Time
}

// NewRoute returns a Route over points.
func NewRoute(points []core.Location, interval time.Duration) (*Route, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("route needs at least one position")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("route interval must be positive")
	}
	return &Route{points: points, interval: interval, now: time.Now}, nil
}

// NewStatic returns a source that reports p once per interval.
func NewStatic(p core.Location, interval time.Duration) (*Route, error) {
	return NewRoute([]core.Location{p}, interval)
}

var _ core.PositionSource = (*Route)(nil)

// Start emits the first fix immediately and one per interval until ctx is
// done, then closes the channel.
func (r *Route) Start(ctx context.Context) (<-chan core.Location, error) {
	ch := make(chan core.Location)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			fix := r.points[i%len(r.points)]
			fix.SampleTime = r.now()
			fix.Accuracy = r.Accuracy
			select {
			case ch <- fix:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Denied is a source without location permission.
type Denied struct{}

// Start always fails with core.ErrPermissionDenied.
func (Denied) Start(context.Context) (<-chan core.Location, error) {
	return nil, core.ErrPermissionDenied
}
