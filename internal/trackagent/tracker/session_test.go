package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/location"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

type chanSource struct {
	ch     chan core.Location
	err    error
	starts int
}

func (s *chanSource) Start(ctx context.Context) (<-chan core.Location, error) {
	s.starts++
	if s.err != nil {
		return nil, s.err
	}
	return s.ch, nil
}

type fakeUpdates struct {
	mu      sync.Mutex
	inputs  []*location.BatchUpdateDevicePositionInput
	updated chan struct{}
}

func (f *fakeUpdates) BatchUpdateDevicePosition(ctx context.Context, in *location.BatchUpdateDevicePositionInput, _ ...func(*location.Options)) (*location.BatchUpdateDevicePositionOutput, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()
	f.updated <- struct{}{}
	return &location.BatchUpdateDevicePositionOutput{}, nil
}

func TestSessionReportsAndFilters(t *testing.T) {
	src := &chanSource{ch: make(chan core.Location)}
	api := &fakeUpdates{updated: make(chan struct{}, 10)}
	s := NewSession(api, src, Config{
		TrackerName: "tracker",
		DeviceID:    "D1",
		Filters:     FilterConfig{Distance: true, DistanceInterval: 30},
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Resume(context.Background()); err != nil {
		t.Fatal(err)
	}
	if src.starts != 1 {
		t.Errorf("source starts = %d, want 1", src.starts)
	}

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src.ch <- core.Location{Latitude: 33.930338, Longitude: -118.368004, SampleTime: t0, Accuracy: 5}
	<-api.updated
	// Too close to be reported, but still the current location.
	src.ch <- core.Location{Latitude: 33.930340, Longitude: -118.368004, SampleTime: t0.Add(time.Second)}
	src.ch <- core.Location{Latitude: 33.933522, Longitude: -118.370309, SampleTime: t0.Add(time.Minute)}
	<-api.updated

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Error("Running() = true after Stop")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.inputs) != 2 {
		t.Fatalf("updates = %d, want 2", len(api.inputs))
	}
	first := api.inputs[0]
	if aws.ToString(first.TrackerName) != "tracker" || len(first.Updates) != 1 {
		t.Fatalf("unexpected input %+v", first)
	}
	u := first.Updates[0]
	if aws.ToString(u.DeviceId) != "D1" || u.Position[0] != -118.368004 || u.Position[1] != 33.930338 {
		t.Errorf("unexpected update %+v", u)
	}
	if u.Accuracy == nil || aws.ToFloat64(u.Accuracy.Horizontal) != 5 {
		t.Errorf("accuracy = %+v", u.Accuracy)
	}

	cur, ok := s.CurrentLocation()
	if !ok || cur.Latitude != 33.933522 {
		t.Errorf("CurrentLocation() = %+v, %v", cur, ok)
	}
}

func TestSessionStartPermissionDenied(t *testing.T) {
	src := &chanSource{err: core.ErrPermissionDenied}
	s := NewSession(&fakeUpdates{}, src, Config{DeviceID: "D1"})

	err := s.Start(context.Background())
	if !errors.Is(err, core.ErrPermissionDenied) {
		t.Fatalf("Start() error = %v, want permission denied", err)
	}
	if s.Running() {
		t.Error("Running() = true after failed start")
	}
}

func TestSetFilters(t *testing.T) {
	s := NewSession(&fakeUpdates{}, &chanSource{}, Config{})
	s.SetFilters(FilterConfig{Time: true, TimeInterval: time.Minute})
	if got := s.Filters(); !got.Time || got.TimeInterval != time.Minute {
		t.Errorf("Filters() = %+v", got)
	}
}
