package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Optimistic asset mutations
var (
	// AssetMutationsTotal counts reconciler outcomes by list kind, operation and result.
	// result is one of: optimistic, confirmed, rolled_back, restored, rejected.
	AssetMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_mutations_total",
			Help: "Optimistic asset mutations by kind, operation and result",
		},
		[]string{"kind", "operation", "result"},
	)

	// PendingAssets tracks placeholders currently awaiting confirmation.
	PendingAssets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asset_pending_placeholders",
			Help: "Placeholders awaiting remote confirmation",
		},
		[]string{"kind"},
	)

	// RemoteWriteDuration tracks asset store write latency.
	RemoteWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_remote_write_duration_seconds",
			Help:    "Asset store create/delete duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	// IdleEvictions counts owners whose lists were dropped after going unused.
	IdleEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_library_idle_evictions_total",
			Help: "Owners whose asset lists were evicted after the idle TTL",
		},
	)
)

// Session projection
var (
	// SessionProjectionsTotal counts projected session events by event and outcome.
	SessionProjectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_projections_total",
			Help: "Session events projected by event kind and outcome",
		},
		[]string{"event", "outcome"},
	)

	// Redirects counts guard redirects by target route.
	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_redirects_total",
			Help: "Navigation redirects issued by the session guard",
		},
		[]string{"target"},
	)

	// ActiveProjectors tracks connected session streams.
	ActiveProjectors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_projectors_active",
			Help: "Connected session projector streams",
		},
	)
)

// SSR
var (
	// RenderFailures counts SSR render failures.
	RenderFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ssr_render_failures_total",
			Help: "Server-side render failures answered with 500",
		},
	)
)
