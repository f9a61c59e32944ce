package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
	"github.com/autopeer-io/geotrack/internal/trackagent/tracker"
	"github.com/autopeer-io/geotrack/pkg/log"
)

type handlers struct {
	deps Deps
}

type trackingResponse struct {
	State      string     `json:"state"`
	Ready      bool       `json:"ready"`
	Checkpoint *time.Time `json:"checkpoint,omitempty"`
}

// filtersBody carries durations as Go duration strings ("30s").
type filtersBody struct {
	TimeFilter       bool    `json:"timeFilter"`
	DistanceFilter   bool    `json:"distanceFilter"`
	AccuracyFilter   bool    `json:"accuracyFilter"`
	TimeInterval     string  `json:"timeInterval"`
	DistanceInterval float64 `json:"distanceInterval"`
}

type geocodeResponse struct {
	Label string `json:"label"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (h *handlers) readyz(w http.ResponseWriter, _ *http.Request) {
	if !h.deps.Controller.Ready() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handlers) trackingState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.tracking())
}

func (h *handlers) tracking() trackingResponse {
	resp := trackingResponse{
		State: h.deps.Controller.State(),
		Ready: h.deps.Controller.Ready(),
	}
	if cp := h.deps.Controller.Checkpoint(); !cp.IsZero() {
		resp.Checkpoint = &cp
	}
	return resp
}

func (h *handlers) startTracking(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Controller.Start(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.tracking())
}

func (h *handlers) stopTracking(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Controller.Stop(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.tracking())
}

func (h *handlers) getFilters(w http.ResponseWriter, _ *http.Request) {
	cfg := h.deps.Filters.Filters()
	writeJSON(w, http.StatusOK, filtersBody{
		TimeFilter:       cfg.Time,
		DistanceFilter:   cfg.Distance,
		AccuracyFilter:   cfg.Accuracy,
		TimeInterval:     cfg.TimeInterval.String(),
		DistanceInterval: cfg.DistanceInterval,
	})
}

func (h *handlers) putFilters(w http.ResponseWriter, r *http.Request) {
	var body filtersBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error(), Kind: core.KindDecode.String()})
		return
	}

	cfg := tracker.FilterConfig{
		Time:             body.TimeFilter,
		Distance:         body.DistanceFilter,
		Accuracy:         body.AccuracyFilter,
		DistanceInterval: body.DistanceInterval,
	}
	if body.TimeInterval != "" {
		d, err := time.ParseDuration(body.TimeInterval)
		if err != nil || d < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid timeInterval", Kind: core.KindConfiguration.String()})
			return
		}
		cfg.TimeInterval = d
	}
	if cfg.DistanceInterval < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid distanceInterval", Kind: core.KindConfiguration.String()})
		return
	}

	h.deps.Filters.SetFilters(cfg)
	log.Info("Location filters updated", "active", cfg.Active())
	h.getFilters(w, r)
}

func (h *handlers) geocode(w http.ResponseWriter, r *http.Request) {
	if h.deps.Geocoder == nil {
		writeJSON(w, http.StatusPreconditionFailed, errorResponse{Error: core.MessageNotConfigured, Kind: core.KindConfiguration.String()})
		return
	}

	vars := mux.Vars(r)
	lon, errLon := strconv.ParseFloat(vars["lon"], 64)
	lat, errLat := strconv.ParseFloat(vars["lat"], 64)
	if errLon != nil || errLat != nil || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "lon and lat must be valid coordinates", Kind: core.KindDecode.String()})
		return
	}

	label, err := h.deps.Geocoder.Reverse(r.Context(), lon, lat)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.deps.View != nil {
		h.deps.View.SetCenterLabel(label)
	}
	writeJSON(w, http.StatusOK, geocodeResponse{Label: label})
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	if h.deps.View == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.View.Snapshot())
}

func (h *handlers) dismissAlert(w http.ResponseWriter, _ *http.Request) {
	if h.deps.View != nil {
		h.deps.View.DismissAlert()
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	kind := core.Classify(err)
	status := http.StatusBadGateway
	switch kind {
	case core.KindConfiguration, core.KindInvalidArn:
		status = http.StatusPreconditionFailed
	case core.KindPermission:
		status = http.StatusForbidden
	case core.KindCanceled:
		status = http.StatusRequestTimeout
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err, "Failed to encode response")
	}
}
