// Package coordinator drives one tracking session: authentication, device
// tracking, periodic history fetch with geofence evaluation, and the
// notification channel.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"golang.org/x/sync/semaphore"

	"github.com/autopeer-io/geotrack/internal/pkg/metrics"
	"github.com/autopeer-io/geotrack/internal/trackagent/core"
	"github.com/autopeer-io/geotrack/internal/trackagent/geofence"
	"github.com/autopeer-io/geotrack/internal/trackagent/history"
	"github.com/autopeer-io/geotrack/pkg/log"
)

// Authenticator exchanges the identity pool id for temporary credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, poolID string) (core.Credentials, error)
	Valid() bool
	IdentityID() string
}

// Tracking reports the device location while running.
type Tracking interface {
	Start(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop()
	DeviceID() string
	CurrentLocation() (core.Location, bool)
}

// HistoryFetcher drains the device position history.
type HistoryFetcher interface {
	FetchSince(ctx context.Context, checkpoint time.Time) (history.Result, error)
}

// Evaluator submits a position for geofence evaluation.
type Evaluator interface {
	Evaluate(ctx context.Context, deviceID string, position []float64, sampleTime time.Time, collectionArn string) ([]geofence.ItemError, error)
}

// GeofenceLister lists the geofences of a collection.
type GeofenceLister interface {
	List(ctx context.Context, collectionArn string) ([]core.Geofence, error)
}

// Channel receives geofence events pushed for the device.
type Channel interface {
	Connect(ctx context.Context, clientID, deviceID string) error
	Disconnect(ctx context.Context) error
	Connected() bool
}

// Config holds the static session settings.
type Config struct {
	PoolID        string
	CollectionArn string
	// Missing names required settings that are blank; a non-empty list
	// refuses every start.
	Missing []string
}

// Deps are the collaborators of a Coordinator. Archiver and Lister are optional.
type Deps struct {
	Auth     Authenticator
	Tracking Tracking
	History  HistoryFetcher
	Evaluate Evaluator
	Lister   GeofenceLister
	Channel  Channel
	View     core.View
	Flags    core.FlagStore
	Archiver core.BatchArchiver
}

// Coordinator owns the session state machine and the periodic cycle.
type Coordinator struct {
	cfg      Config
	auth     Authenticator
	tracking Tracking
	history  HistoryFetcher
	evaluate Evaluator
	lister   GeofenceLister
	channel  Channel
	view     core.View
	flags    core.FlagStore
	archiver core.BatchArchiver

	fsm *fsm.FSM

	// lifecycle serializes Start, Resume and Stop.
	lifecycle sync.Mutex

	mu          sync.Mutex
	generation  uint64
	sessionCtx  context.Context
	cancel      context.CancelFunc
	startCancel context.CancelFunc
	checkpoint  time.Time

	cycle      *semaphore.Weighted
	background sync.WaitGroup
	queue      *serialQueue

	now func() time.Time
}

// New returns an idle Coordinator.
func New(cfg Config, deps Deps) (*Coordinator, error) {
	switch {
	case deps.Auth == nil:
		return nil, errors.New("coordinator: authenticator is required")
	case deps.Tracking == nil:
		return nil, errors.New("coordinator: tracking is required")
	case deps.History == nil:
		return nil, errors.New("coordinator: history fetcher is required")
	case deps.Evaluate == nil:
		return nil, errors.New("coordinator: evaluator is required")
	case deps.Channel == nil:
		return nil, errors.New("coordinator: channel is required")
	case deps.View == nil:
		return nil, errors.New("coordinator: view is required")
	}

	c := &Coordinator{
		cfg:      cfg,
		auth:     deps.Auth,
		tracking: deps.Tracking,
		history:  deps.History,
		evaluate: deps.Evaluate,
		lister:   deps.Lister,
		channel:  deps.Channel,
		view:     deps.View,
		flags:    deps.Flags,
		archiver: deps.Archiver,
		cycle:    semaphore.NewWeighted(1),
		queue:    newSerialQueue(),
		now:      time.Now,
	}
	c.fsm = c.newFSM()
	metrics.SetSessionState(StateIdle, allStates)
	return c, nil
}

// State returns the current session state.
func (c *Coordinator) State() string {
	return c.fsm.Current()
}

// Active reports whether a session is running.
func (c *Coordinator) Active() bool {
	return c.fsm.Current() == StateActive
}

// Ready reports whether the session is running and the channel is connected.
func (c *Coordinator) Ready() bool {
	return c.Active() && c.channel.Connected()
}

// Checkpoint returns the start time of the last fully drained cycle.
func (c *Coordinator) Checkpoint() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkpoint
}

// Start begins a session and loads the geofence list for display.
func (c *Coordinator) Start(ctx context.Context) error {
	return c.begin(ctx, false)
}

// Resume restores a session that was active before a restart. It skips the
// geofence list load.
func (c *Coordinator) Resume(ctx context.Context) error {
	return c.begin(ctx, true)
}

func (c *Coordinator) begin(ctx context.Context, resume bool) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.fsm.Current() != StateIdle {
		log.Debug("Start ignored, session already running", "state", c.fsm.Current())
		return nil
	}

	if len(c.cfg.Missing) > 0 {
		log.Warn("Refusing to start tracking, configuration incomplete", "missing", c.cfg.Missing)
		c.view.ShowAlert(core.Alert{Title: core.TitleError, Message: core.MessageNotConfigured})
		return fmt.Errorf("%w: missing %v", core.ErrConfiguration, c.cfg.Missing)
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.startCancel = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.startCancel = nil
		c.mu.Unlock()
		cancel()
	}()

	c.transition(EventAuthenticate)

	if !c.auth.Valid() {
		if _, err := c.auth.Authenticate(attemptCtx, c.cfg.PoolID); err != nil {
			return c.failStart("authenticate", err)
		}
	}

	startTracking := c.tracking.Start
	if resume {
		startTracking = c.tracking.Resume
	}
	if err := startTracking(attemptCtx); err != nil {
		return c.failStart("start tracking", err)
	}

	sessionCtx, sessionCancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.generation++
	c.sessionCtx = sessionCtx
	c.cancel = sessionCancel
	c.mu.Unlock()

	c.transition(EventActivate)
	c.view.SetTracking(true)

	deviceID := c.tracking.DeviceID()
	log.Info("Tracking session active", "device", deviceID, "resumed", resume)

	if !resume && c.lister != nil {
		c.background.Add(1)
		go func() {
			defer c.background.Done()
			c.loadGeofences(sessionCtx)
		}()
	}

	clientID := c.auth.IdentityID()
	c.queue.Submit(func() {
		if err := c.channel.Connect(sessionCtx, clientID, deviceID); err != nil {
			if sessionCtx.Err() != nil {
				return
			}
			log.Error(err, "Failed to connect notification channel", "device", deviceID)
			c.view.ShowAlert(core.TrackingErrorAlert(err))
		}
	})
	return nil
}

func (c *Coordinator) failStart(step string, err error) error {
	c.transition(EventFail)

	switch core.Classify(err) {
	case core.KindPermission:
		log.Warn("Location permission denied, tracking not started")
		c.view.ShowAlert(core.Alert{Title: core.TitleLocationPermission, Message: core.MessageLocationPermission})
	case core.KindCanceled:
		log.Info("Start canceled", "step", step)
	default:
		log.Error(err, "Failed to start tracking", "step", step)
		c.view.ShowAlert(core.TrackingErrorAlert(err))
	}
	return fmt.Errorf("%s: %w", step, err)
}

func (c *Coordinator) loadGeofences(ctx context.Context) {
	geofences, err := c.lister.List(ctx, c.cfg.CollectionArn)
	if err != nil {
		if ctx.Err() == nil {
			log.Error(err, "Failed to list geofences")
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	log.Info("Loaded geofences", "count", len(geofences))
	c.view.DisplayGeofences(geofences)
}

// Stop ends the session on user request and clears the persisted tracking
// flag. It cancels a start still in progress and is a no-op when no session
// is running.
func (c *Coordinator) Stop(ctx context.Context) error {
	return c.teardown(EventStopped)
}

// Shutdown ends the session for process exit. The persisted tracking flag is
// left as is so the next launch resumes.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	return c.teardown(EventHalted)
}

func (c *Coordinator) teardown(final string) error {
	c.mu.Lock()
	if c.startCancel != nil {
		c.startCancel()
	}
	c.mu.Unlock()

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.fsm.Current() != StateActive {
		return nil
	}

	c.mu.Lock()
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.transition(EventStop)
	c.tracking.Stop()

	c.queue.Submit(func() {
		if err := c.channel.Disconnect(context.Background()); err != nil {
			log.Error(err, "Failed to disconnect notification channel")
		}
	})

	c.view.SetTracking(false)
	c.transition(final)
	log.Info("Tracking session stopped", "persisted", final == EventStopped)
	return nil
}

// Tick starts one fetch-and-evaluate cycle in the background. It never
// blocks: ticks arriving while idle or while a cycle is in flight are dropped.
func (c *Coordinator) Tick() {
	if c.fsm.Current() != StateActive {
		metrics.TicksTotal.WithLabelValues("inactive").Inc()
		return
	}
	if !c.cycle.TryAcquire(1) {
		metrics.TicksTotal.WithLabelValues("coalesced").Inc()
		log.Debug("Tick coalesced, previous cycle still running")
		return
	}

	c.mu.Lock()
	gen, ctx := c.generation, c.sessionCtx
	c.mu.Unlock()
	if ctx == nil {
		c.cycle.Release(1)
		return
	}

	metrics.TicksTotal.WithLabelValues("run").Inc()
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		defer c.cycle.Release(1)
		c.runCycle(ctx, gen, c.now())
	}()
}

// Run ticks every interval until ctx is done.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Wait blocks until in-flight cycles, geofence loads and queued channel
// operations finish.
func (c *Coordinator) Wait() {
	c.background.Wait()
	c.queue.Wait()
}

// Close shuts the session down for process exit and releases the
// background queue.
func (c *Coordinator) Close(ctx context.Context) error {
	err := c.Shutdown(ctx)
	c.Wait()
	c.queue.Close()
	return err
}

func (c *Coordinator) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation == gen
}

func (c *Coordinator) runCycle(ctx context.Context, gen uint64, tickStart time.Time) {
	defer func() {
		metrics.CycleDuration.Observe(c.now().Sub(tickStart).Seconds())
	}()

	checkpoint := c.Checkpoint()
	res, err := c.history.FetchSince(ctx, checkpoint)
	deviceID := c.tracking.DeviceID()

	// The generation check and every state write happen under one lock so a
	// Stop that has returned never sees this cycle's result.
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		log.Debug("Discarding cycle result from a stopped session")
		return
	}
	if res.Pages > 0 {
		c.view.DrawPoints(res.Positions)
	}
	if err == nil {
		c.checkpoint = tickStart
		checkpoint = tickStart
	}
	c.mu.Unlock()

	if err != nil {
		switch core.Classify(err) {
		case core.KindCanceled:
			return
		case core.KindPaginationExhausted:
			log.Warn("History pagination cut short, keeping checkpoint", "pages", res.Pages, "positions", len(res.Positions))
		default:
			log.Error(err, "History fetch failed, keeping checkpoint", "pages", res.Pages)
		}
	}

	if c.archiver != nil && len(res.Positions) > 0 && c.current(gen) {
		if aerr := c.archiver.Archive(ctx, deviceID, tickStart, res.Positions); aerr != nil {
			log.Error(aerr, "Failed to archive history batch", "device", deviceID)
		}
	}

	c.evaluateLatest(ctx, gen, deviceID, checkpoint, res.Positions)
}

func (c *Coordinator) evaluateLatest(ctx context.Context, gen uint64, deviceID string, sampleTime time.Time, positions []core.DevicePosition) {
	if sampleTime.IsZero() {
		log.Debug("Skipping geofence evaluation, no completed fetch yet")
		return
	}

	var position []float64
	if loc, ok := c.tracking.CurrentLocation(); ok {
		position = []float64{loc.Longitude, loc.Latitude}
	} else if len(positions) > 0 {
		position = []float64{positions[0].Longitude, positions[0].Latitude}
	} else {
		log.Debug("Skipping geofence evaluation, no known position")
		return
	}

	if !c.current(gen) {
		return
	}
	if _, err := c.evaluate.Evaluate(ctx, deviceID, position, sampleTime, c.cfg.CollectionArn); err != nil {
		if core.Classify(err) != core.KindCanceled {
			log.Error(err, "Geofence evaluation failed", "device", deviceID)
		}
	}
}
