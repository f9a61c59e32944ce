package trackagent

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/geotrack/internal/trackagent/archive"
	"github.com/autopeer-io/geotrack/internal/trackagent/coordinator"
	"github.com/autopeer-io/geotrack/internal/trackagent/core"
	"github.com/autopeer-io/geotrack/internal/trackagent/server"
	"github.com/autopeer-io/geotrack/internal/trackagent/tracker"
	"github.com/autopeer-io/geotrack/internal/trackagent/ui"
	"github.com/autopeer-io/geotrack/pkg/log"
)

type Agent struct {
	deviceID     string
	coordinator  *coordinator.Coordinator
	tracking     *tracker.Session
	flags        core.FlagStore
	loop         *ui.Loop
	console      *ui.Console
	server       *server.Server
	archive      *archive.Archive
	tickInterval time.Duration
	autoStart    bool
}

// ApplyFilters replaces the live location filter configuration.
func (a *Agent) ApplyFilters(cfg tracker.FilterConfig) {
	a.tracking.SetFilters(cfg)
	log.Info("Location filters reloaded", "active", cfg.Active())
}

func (a *Agent) Run(ctx context.Context) error {
	log.Info("Starting geotrack-agent", "deviceID", a.deviceID, "tickInterval", a.tickInterval)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.loop.Run(ctx) })
	if a.console != nil {
		g.Go(func() error { return a.console.Run(ctx, a.loop) })
	}
	if a.server != nil {
		g.Go(func() error { return a.server.Start(ctx) })
	}
	g.Go(func() error { return a.coordinator.Run(ctx, a.tickInterval) })
	g.Go(func() error {
		a.launch(ctx)
		<-ctx.Done()
		log.Info("Agent shutting down...")
		return a.coordinator.Close(context.Background())
	})

	return g.Wait()
}

// launch resumes a session that was active before the restart, or starts
// one when auto-start is set.
func (a *Agent) launch(ctx context.Context) {
	if a.archive != nil {
		if err := a.archive.EnsureBucket(ctx); err != nil {
			log.Error(err, "History archive unavailable, batches will fail to upload")
		}
	}

	active, err := a.flags.TrackingActive()
	if err != nil {
		log.Error(err, "Failed to read persisted tracking flag")
	}

	switch {
	case active:
		log.Info("Resuming tracking session from previous run")
		err = a.coordinator.Resume(ctx)
	case a.autoStart:
		err = a.coordinator.Start(ctx)
	default:
		return
	}
	if err != nil {
		log.Error(err, "Tracking did not start on launch", "kind", core.Classify(err))
	}
}
