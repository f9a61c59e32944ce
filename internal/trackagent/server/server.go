// Package server exposes the agent's control surface over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/geotrack/internal/pkg/metrics"
	"github.com/autopeer-io/geotrack/internal/trackagent/tracker"
	"github.com/autopeer-io/geotrack/internal/trackagent/ui"
	"github.com/autopeer-io/geotrack/pkg/log"
	"github.com/autopeer-io/geotrack/pkg/options"
)

// Controller starts and stops the tracking session.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	State() string
	Ready() bool
	Checkpoint() time.Time
}

// FilterTarget holds the live location filter configuration.
type FilterTarget interface {
	Filters() tracker.FilterConfig
	SetFilters(cfg tracker.FilterConfig)
}

// Geocoder resolves a position to an address label.
type Geocoder interface {
	Reverse(ctx context.Context, lon, lat float64) (string, error)
}

// ViewState is the UI state the surface reads and adjusts.
type ViewState interface {
	Snapshot() ui.State
	DismissAlert()
	SetCenterLabel(label string)
}

// Deps are the handlers' collaborators. Geocoder is nil when no API key is
// configured.
type Deps struct {
	Controller Controller
	Filters    FilterTarget
	Geocoder   Geocoder
	View       ViewState
}

// Server serves probes, metrics and the control API.
type Server struct {
	server  *http.Server
	options *options.HttpOptions
}

// NewServer builds the router for deps.
func NewServer(opts *options.HttpOptions, deps Deps) *Server {
	return &Server{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           NewRouter(deps),
			ReadHeaderTimeout: 5 * time.Second,
		},
		options: opts,
	}
}

const apiPrefix = "/api/v1"

// NewRouter returns the HTTP handler for deps.
func NewRouter(deps Deps) http.Handler {
	h := &handlers{deps: deps}
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.readyz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// API routes sit on the root router: a subrouter answers a method
	// mismatch with 404 instead of 405.
	r.HandleFunc(apiPrefix+"/tracking", h.trackingState).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/tracking/start", h.startTracking).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/tracking/stop", h.stopTracking).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/filters", h.getFilters).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/filters", h.putFilters).Methods(http.MethodPut)
	r.HandleFunc(apiPrefix+"/geocode", h.geocode).Methods(http.MethodGet).Queries("lon", "{lon}", "lat", "{lat}")
	r.HandleFunc(apiPrefix+"/view", h.view).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/view/alert", h.dismissAlert).Methods(http.MethodDelete)

	r.Use(logRequests)
	return r
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	log.Info("Starting HTTP server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
