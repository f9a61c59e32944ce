// Package ui holds the user-visible state and applies every change to it on
// a single goroutine.
package ui

import (
	"context"
	"sync"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

// State is a snapshot of everything the user sees.
type State struct {
	Tracking    bool                  `json:"tracking"`
	ButtonLabel string                `json:"buttonLabel"`
	ButtonColor string                `json:"buttonColor"`
	Points      []core.DevicePosition `json:"points"`
	Geofences   []core.Geofence       `json:"geofences"`
	// Alert is the single alert on screen. A new alert replaces it.
	Alert       *core.Alert `json:"alert,omitempty"`
	CenterLabel string      `json:"centerLabel,omitempty"`
	// Version increases with every applied change.
	Version uint64 `json:"version"`
}

func initialState() State {
	return State{
		ButtonLabel: core.LabelStartTracking,
		ButtonColor: core.ColorStart,
	}
}

// Loop serializes UI mutations. All core.View methods may be called from
// any goroutine; they enqueue the change and return without waiting.
type Loop struct {
	ops  chan func(*State)
	done chan struct{}
	once sync.Once

	mu    sync.RWMutex
	state State
	subs  map[chan State]struct{}
}

var _ core.View = (*Loop)(nil)

// NewLoop returns a Loop. Changes are applied once Run is called.
func NewLoop() *Loop {
	return &Loop{
		ops:   make(chan func(*State), 256),
		done:  make(chan struct{}),
		state: initialState(),
		subs:  map[chan State]struct{}{},
	}
}

// Run applies queued changes until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case op := <-l.ops:
			l.apply(op)
		}
	}
}

func (l *Loop) apply(op func(*State)) {
	l.mu.Lock()
	op(&l.state)
	l.state.Version++
	snapshot := l.state.clone()
	subs := make([]chan State, 0, len(l.subs))
	for ch := range l.subs {
		subs = append(subs, ch)
	}
	l.mu.Unlock()

	for _, ch := range subs {
		publishLatest(ch, snapshot)
	}
}

// publishLatest replaces any unread value in ch with s.
func publishLatest(ch chan State, s State) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (l *Loop) enqueue(op func(*State)) {
	select {
	case l.ops <- op:
	case <-l.done:
	}
}

// Snapshot returns a copy of the current state.
func (l *Loop) Snapshot() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.clone()
}

// Subscribe returns a channel holding the latest state after each change,
// and a function that ends the subscription.
func (l *Loop) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()
	return ch, func() {
		l.mu.Lock()
		delete(l.subs, ch)
		l.mu.Unlock()
	}
}

// Flush waits until every change queued before it has been applied.
func (l *Loop) Flush(ctx context.Context) error {
	applied := make(chan struct{})
	select {
	case l.ops <- func(*State) { close(applied) }:
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-applied:
		return nil
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DrawPoints replaces the drawn track.
func (l *Loop) DrawPoints(positions []core.DevicePosition) {
	points := append([]core.DevicePosition(nil), positions...)
	l.enqueue(func(s *State) { s.Points = points })
}

// DisplayGeofences replaces the displayed geofences.
func (l *Loop) DisplayGeofences(geofences []core.Geofence) {
	gs := append([]core.Geofence(nil), geofences...)
	l.enqueue(func(s *State) { s.Geofences = gs })
}

// ShowAlert shows alert, replacing any alert on screen.
func (l *Loop) ShowAlert(alert core.Alert) {
	l.enqueue(func(s *State) { s.Alert = &alert })
}

// DismissAlert clears the alert on screen.
func (l *Loop) DismissAlert() {
	l.enqueue(func(s *State) { s.Alert = nil })
}

// SetTracking updates the tracking button.
func (l *Loop) SetTracking(active bool) {
	l.enqueue(func(s *State) {
		s.Tracking = active
		if active {
			s.ButtonLabel, s.ButtonColor = core.LabelStopTracking, core.ColorStop
		} else {
			s.ButtonLabel, s.ButtonColor = core.LabelStartTracking, core.ColorStart
		}
	})
}

// SetCenterLabel shows the address of the map centre.
func (l *Loop) SetCenterLabel(label string) {
	l.enqueue(func(s *State) { s.CenterLabel = label })
}

func (s State) clone() State {
	c := s
	c.Points = append([]core.DevicePosition(nil), s.Points...)
	c.Geofences = append([]core.Geofence(nil), s.Geofences...)
	if s.Alert != nil {
		a := *s.Alert
		c.Alert = &a
	}
	return c
}
