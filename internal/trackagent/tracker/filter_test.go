package tracker

import (
	"testing"
	"time"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

func TestDistance(t *testing.T) {
	a := core.Location{Latitude: -6.2088, Longitude: 106.8456}
	if d := Distance(a, a); d != 0 {
		t.Errorf("same point distance = %f", d)
	}

	b := core.Location{Latitude: -6.2100, Longitude: 106.8456}
	if d := Distance(a, b); d < 100 || d > 200 {
		t.Errorf("expected ~133m, got %f", d)
	}
}

func TestFilterAccept(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	last := &core.Location{Latitude: 33.930338, Longitude: -118.368004, SampleTime: t0}
	// About 13m north of last.
	near := core.Location{Latitude: 33.930458, Longitude: -118.368004, SampleTime: t0.Add(10 * time.Second)}
	// About 400m away, one minute later.
	far := core.Location{Latitude: 33.933522, Longitude: -118.370309, SampleTime: t0.Add(time.Minute)}

	tests := []struct {
		name string
		cfg  FilterConfig
		last *core.Location
		next core.Location
		want bool
	}{
		{"first fix", FilterConfig{Time: true, Distance: true, Accuracy: true, TimeInterval: time.Hour, DistanceInterval: 1e6}, nil, near, true},
		{"no filters", FilterConfig{}, last, near, true},
		{"time rejects", FilterConfig{Time: true, TimeInterval: 30 * time.Second}, last, near, false},
		{"time accepts", FilterConfig{Time: true, TimeInterval: 30 * time.Second}, last, far, true},
		{"distance rejects", FilterConfig{Distance: true, DistanceInterval: 30}, last, near, false},
		{"distance accepts", FilterConfig{Distance: true, DistanceInterval: 30}, last, far, true},
		{"accuracy rejects", FilterConfig{Accuracy: true}, last, withAccuracy(near, 50), false},
		{"accuracy accepts", FilterConfig{Accuracy: true}, last, withAccuracy(far, 50), true},
		{"all must pass", FilterConfig{Time: true, Distance: true, TimeInterval: 5 * time.Second, DistanceInterval: 30}, last, near, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Accept(tt.last, tt.next); got != tt.want {
				t.Errorf("Accept() = %v, want %v", got, tt.want)
			}
		})
	}
}

func withAccuracy(l core.Location, acc float64) core.Location {
	l.Accuracy = acc
	return l
}

func TestFilterActive(t *testing.T) {
	cfg := FilterConfig{Time: true, Accuracy: true}
	got := cfg.Active()
	if len(got) != 2 || got[0] != "time" || got[1] != "accuracy" {
		t.Errorf("Active() = %v", got)
	}
}
