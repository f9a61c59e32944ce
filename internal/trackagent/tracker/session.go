// Package tracker owns the device's position reporting lifecycle.
package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/location"
	"github.com/aws/aws-sdk-go-v2/service/location/types"

	"github.com/autopeer-io/geotrack/internal/pkg/metrics"
	"github.com/autopeer-io/geotrack/internal/trackagent/awscall"
	"github.com/autopeer-io/geotrack/internal/trackagent/core"
	"github.com/autopeer-io/geotrack/pkg/log"
)

// UpdateAPI is the subset of the location client used to report positions.
type UpdateAPI interface {
	BatchUpdateDevicePosition(ctx context.Context, params *location.BatchUpdateDevicePositionInput, optFns ...func(*location.Options)) (*location.BatchUpdateDevicePositionOutput, error)
}

// Config configures a Session.
type Config struct {
	TrackerName string
	DeviceID    string
	Filters     FilterConfig
	Caller      *awscall.Caller
}

// Session reads fixes from a position source, filters them and reports the
// accepted ones to the tracker.
type Session struct {
	api      UpdateAPI
	source   core.PositionSource
	tracker  string
	deviceID string
	caller   *awscall.Caller

	mu       sync.Mutex
	filters  FilterConfig
	current  *core.Location
	reported *core.Location
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSession returns a stopped Session.
func NewSession(api UpdateAPI, source core.PositionSource, cfg Config) *Session {
	caller := cfg.Caller
	if caller == nil {
		caller = &awscall.Caller{}
	}
	return &Session{
		api:      api,
		source:   source,
		tracker:  cfg.TrackerName,
		deviceID: cfg.DeviceID,
		caller:   caller,
		filters:  cfg.Filters,
	}
}

// DeviceID returns the id positions are reported under.
func (s *Session) DeviceID() string {
	return s.deviceID
}

// Start begins reading and reporting fixes. It is a no-op while running.
// A source that lacks permission fails with core.ErrPermissionDenied.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	fixes, err := s.source.Start(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("start position source: %w", err)
	}

	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx, fixes, s.done)

	log.Info("Tracking session started", "deviceID", s.deviceID, "filters", s.filters.Active())
	return nil
}

// Resume restarts reporting after a restart. It behaves like Start.
func (s *Session) Resume(ctx context.Context) error {
	return s.Start(ctx)
}

// Stop ends reporting and waits for the reporting loop to exit.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.reported = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Info("Tracking session stopped", "deviceID", s.deviceID)
}

// Running reports whether the session is started.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// CurrentLocation returns the most recent fix, reported or not.
func (s *Session) CurrentLocation() (core.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return core.Location{}, false
	}
	return *s.current, true
}

// Filters returns the active filter configuration.
func (s *Session) Filters() FilterConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// SetFilters replaces the filter configuration. It applies to the next fix.
func (s *Session) SetFilters(cfg FilterConfig) {
	s.mu.Lock()
	s.filters = cfg
	s.mu.Unlock()
	log.Info("Location filters updated", "filters", cfg.Active(), "timeInterval", cfg.TimeInterval, "distanceInterval", cfg.DistanceInterval)
}

func (s *Session) run(ctx context.Context, fixes <-chan core.Location, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-fixes:
			if !ok {
				return
			}
			s.handleFix(ctx, fix)
		}
	}
}

func (s *Session) handleFix(ctx context.Context, fix core.Location) {
	s.mu.Lock()
	f := fix
	s.current = &f
	accept := s.filters.Accept(s.reported, fix)
	s.mu.Unlock()

	if !accept {
		metrics.PositionUpdatesTotal.WithLabelValues("filtered").Inc()
		return
	}

	if err := s.report(ctx, fix); err != nil {
		metrics.PositionUpdatesTotal.WithLabelValues("failed").Inc()
		if core.Classify(err) != core.KindCanceled {
			log.Error(err, "Failed to report position", "deviceID", s.deviceID)
		}
		return
	}

	s.mu.Lock()
	s.reported = &f
	s.mu.Unlock()
	metrics.PositionUpdatesTotal.WithLabelValues("reported").Inc()
}

func (s *Session) report(ctx context.Context, fix core.Location) error {
	update := types.DevicePositionUpdate{
		DeviceId:   aws.String(s.deviceID),
		Position:   fix.Position(),
		SampleTime: aws.Time(fix.SampleTime),
	}
	if fix.Accuracy > 0 {
		update.Accuracy = &types.PositionalAccuracy{Horizontal: aws.Float64(fix.Accuracy)}
	}

	var out *location.BatchUpdateDevicePositionOutput
	err := s.caller.Do(ctx, "BatchUpdateDevicePosition", func(ctx context.Context) error {
		var err error
		out, err = s.api.BatchUpdateDevicePosition(ctx, &location.BatchUpdateDevicePositionInput{
			TrackerName: aws.String(s.tracker),
			Updates:     []types.DevicePositionUpdate{update},
		})
		return err
	})
	if err != nil {
		return err
	}
	for _, e := range out.Errors {
		msg := ""
		if e.Error != nil {
			msg = aws.ToString(e.Error.Message)
		}
		log.Warn("Position update item failed", "deviceID", aws.ToString(e.DeviceId), "message", msg)
	}
	return nil
}
