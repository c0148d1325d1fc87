// Package metrics provides Prometheus metrics for forage-play.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sandbox lifecycle metrics
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forage_play_sandbox_stage_duration_seconds",
			Help:    "Time spent in each sandbox boot stage",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	bootsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forage_play_sandbox_boots_total",
			Help: "Sandbox boot sequences by outcome",
		},
		[]string{"outcome"},
	)

	readyEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forage_play_sandbox_ready_events_total",
			Help: "Server-ready events received from sandboxes",
		},
	)

	// Editor metrics
	savesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forage_play_saves_total",
			Help: "File saves by status",
		},
		[]string{"status"},
	)

	saveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forage_play_save_duration_seconds",
			Help:    "Time to save one buffer to sandbox and store",
			Buckets: prometheus.DefBuckets,
		},
	)

	openBuffers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "forage_play_open_buffers",
			Help: "Number of open editor buffers",
		},
	)

	// Store metrics
	storeOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forage_play_store_operation_duration_seconds",
			Help:    "Persistence gateway operation duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	storeCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forage_play_store_cache_total",
			Help: "Tree cache lookups by result",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordStage records how long a boot stage took.
func RecordStage(stage string, duration time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordBoot records the outcome of a boot sequence ("ready", "reused", "failed").
func RecordBoot(outcome string) {
	bootsTotal.WithLabelValues(outcome).Inc()
}

// RecordReadyEvent counts a server-ready event.
func RecordReadyEvent() {
	readyEventsTotal.Inc()
}

// RecordSave records a save attempt.
func RecordSave(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	savesTotal.WithLabelValues(status).Inc()
	saveDuration.Observe(duration.Seconds())
}

// SetOpenBuffers sets the number of open buffers.
func SetOpenBuffers(count int) {
	openBuffers.Set(float64(count))
}

// RecordStoreOperation records a persistence gateway call.
func RecordStoreOperation(backend, operation string, duration time.Duration) {
	storeOpDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordCacheLookup records a tree cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	storeCacheTotal.WithLabelValues(result).Inc()
}
