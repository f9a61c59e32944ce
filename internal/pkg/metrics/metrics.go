package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "geotrack"

// Metric definitions
var (
	// SessionState reports the coordinator state, one series per state set to 1 when current.
	SessionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Current tracking session state (1 for the active state).",
		},
		[]string{"state"},
	)

	// ChannelConnected is 1 while the geofence event channel is connected.
	ChannelConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_connected",
			Help:      "The connectivity status of the geofence event channel (1=connected, 0=not connected).",
		},
	)

	// TicksTotal counts timer ticks by outcome: run, coalesced, inactive.
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of tracking ticks by outcome.",
		},
		[]string{"outcome"},
	)

	// CycleDuration records the latency of a fetch and evaluate cycle.
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Latency of a history fetch and geofence evaluation cycle.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// HistoryPagesTotal counts fetched history pages.
	HistoryPagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_pages_total",
			Help:      "Total number of position history pages fetched.",
		},
	)

	// HistoryPositionsTotal counts positions by result: kept, dropped.
	HistoryPositionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_positions_total",
			Help:      "Total number of history positions received, by result.",
		},
		[]string{"result"},
	)

	// PaginationExhaustedTotal counts fetch cycles stopped by the page cap or a cursor loop.
	PaginationExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_pagination_exhausted_total",
			Help:      "Total number of history fetches stopped by the page cap or a repeated cursor.",
		},
	)

	// GeofenceEvaluationsTotal counts evaluation calls by status: success, failed, item_error.
	GeofenceEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geofence_evaluations_total",
			Help:      "Total number of geofence evaluation requests by status.",
		},
		[]string{"status"},
	)

	// PositionUpdatesTotal counts device fixes by result: reported, filtered, failed.
	PositionUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "position_updates_total",
			Help:      "Total number of device position fixes by result.",
		},
		[]string{"result"},
	)

	// EventsTotal counts inbound geofence event messages by result: alerted, decode_error.
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geofence_events_total",
			Help:      "Total number of inbound geofence event messages by result.",
		},
		[]string{"result"},
	)

	// CallLatency records AWS call latency by operation.
	CallLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aws_call_latency_seconds",
			Help:      "Latency of AWS service calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Registry holds every geotrack collector plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		SessionState,
		ChannelConnected,
		TicksTotal,
		CycleDuration,
		HistoryPagesTotal,
		HistoryPositionsTotal,
		PaginationExhaustedTotal,
		GeofenceEvaluationsTotal,
		PositionUpdatesTotal,
		EventsTotal,
		CallLatency,
	)
}

// SetSessionState marks state as the current session state.
func SetSessionState(current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		SessionState.WithLabelValues(s).Set(v)
	}
}
