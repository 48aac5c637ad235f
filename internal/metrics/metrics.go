// Package metrics exposes prometheus instruments for the measurement engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tap outcome labels
const (
	OutcomeRegistered = "registered"
	OutcomeCompleted  = "completed"
	OutcomeRejected   = "rejected"
)

// Eviction kind labels
const (
	EvictHistory = "history"
	EvictAnchor  = "anchor"
)

var (
	tapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "truescale_taps_total",
		Help: "Taps handled by the measurement engine, by outcome and rejection reason",
	}, []string{"outcome", "reason"})

	registrationAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "truescale_registration_attempts",
		Help:    "Hit-test attempts needed per surface registration, including jitter retries",
		Buckets: prometheus.LinearBuckets(1, 1, 7),
	})

	evictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "truescale_evictions_total",
		Help: "Capacity evictions, by collection",
	}, []string{"kind"})

	liveAnchors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "truescale_live_anchors",
		Help: "Anchors currently owned by the anchor ledger",
	})
)

// ObserveTap counts one tap outcome. reason is empty unless the tap was rejected.
func ObserveTap(outcome, reason string) {
	tapsTotal.WithLabelValues(outcome, reason).Inc()
}

// ObserveRegistration records how many hit tests a registration took.
func ObserveRegistration(attempts int) {
	registrationAttempts.Observe(float64(attempts))
}

// ObserveEviction counts one capacity eviction.
func ObserveEviction(kind string) {
	evictionsTotal.WithLabelValues(kind).Inc()
}

// SetLiveAnchors publishes the ledger size.
func SetLiveAnchors(n int) {
	liveAnchors.Set(float64(n))
}
