package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in       string
		lat, lon float64
		wantErr  bool
	}{
		{"33.930338,-118.368004", 33.930338, -118.368004, false},
		{" 1.5 , 2.5 ", 1.5, 2.5, false},
		{"91,0", 0, 0, true},
		{"0,181", 0, 0, true},
		{"abc,1", 0, 0, true},
		{"1.0", 0, 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePosition(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePosition(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && (got.Latitude != tt.lat || got.Longitude != tt.lon) {
			t.Errorf("ParsePosition(%q) = %+v", tt.in, got)
		}
	}

	if _, err := ParsePositions([]string{"1,2", "x"}); err == nil {
		t.Error("ParsePositions accepted an invalid entry")
	}
}

func TestRouteLoopsAndStops(t *testing.T) {
	points := []core.Location{{Latitude: 1, Longitude: 1}, {Latitude: 2, Longitude: 2}}
	r, err := NewRoute(points, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	r.Accuracy = 10

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := r.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}

	want := []float64{1, 2, 1}
	for i, lat := range want {
		fix := <-ch
		if fix.Latitude != lat || fix.Accuracy != 10 || fix.SampleTime.IsZero() {
			t.Errorf("fix %d = %+v", i, fix)
		}
	}

	cancel()
	for range ch {
	}
}

func TestNewRouteValidation(t *testing.T) {
	if _, err := NewRoute(nil, time.Second); err == nil {
		t.Error("expected error for empty route")
	}
	if _, err := NewStatic(core.Location{}, 0); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestDenied(t *testing.T) {
	if _, err := (Denied{}).Start(context.Background()); !errors.Is(err, core.ErrPermissionDenied) {
		t.Errorf("Start() error = %v", err)
	}
}
