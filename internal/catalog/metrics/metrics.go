// Package metrics provides Prometheus metrics for the catalog console.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kart-io/catalog-console/pkg/infra/pool"
)

const namespace = "catalog_console"

// Metrics holds all Prometheus metrics of the console core.
type Metrics struct {
	// Transport metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	NetworkErrors   *prometheus.CounterVec

	// Reconciler metrics
	ContentExpansions prometheus.Counter
	StillTruncated    prometheus.Counter
	InconsistentLoads prometheus.Counter
	StaleResponses    *prometheus.CounterVec

	// Controller metrics
	SaveOutcomes       *prometheus.CounterVec
	TransitionOutcomes *prometheus.CounterVec

	// Reindex metrics
	ReindexProcessed *prometheus.CounterVec
	ReindexFailed    *prometheus.CounterVec

	// Worker pool metrics
	PoolCapacity *prometheus.GaugeVec
	PoolRunning  *prometheus.GaugeVec
	PoolTasks    *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates metrics registered on reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{gatherer: reg}

	m.RequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of requests sent to the catalog service",
		},
		[]string{"method", "status"},
	)

	m.RequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of catalog service requests in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)

	m.NetworkErrors = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_errors_total",
			Help:      "Requests that obtained no response",
		},
		[]string{"method"},
	)

	m.ContentExpansions = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_expansions_total",
			Help:      "Follow-up fetches issued for truncated artifact content",
		},
	)

	m.StillTruncated = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_still_truncated_total",
			Help:      "Artifacts still truncated after the full content fetch",
		},
	)

	m.InconsistentLoads = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inconsistent_artifacts_total",
			Help:      "Artifact payloads rejected because content and contentLength disagree",
		},
	)

	m.StaleResponses = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Responses discarded because a newer request superseded them",
		},
		[]string{"session"},
	)

	m.SaveOutcomes = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_saves_total",
			Help:      "Artifact save attempts by outcome",
		},
		[]string{"outcome"},
	)

	m.TransitionOutcomes = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_transitions_total",
			Help:      "Artifact lifecycle transitions by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	m.ReindexProcessed = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reindex_processed_total",
			Help:      "Artifacts processed by reindex runs",
		},
		[]string{"project"},
	)

	m.ReindexFailed = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reindex_failed_total",
			Help:      "Artifacts that failed during reindex runs",
		},
		[]string{"project"},
	)

	m.PoolCapacity = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_capacity",
			Help:      "Capacity of the worker pool",
		},
		[]string{"pool"},
	)

	m.PoolRunning = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_running",
			Help:      "Workers currently running tasks",
		},
		[]string{"pool"},
	)

	m.PoolTasks = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_tasks",
			Help:      "Tasks seen by the worker pool since it was created, by state",
		},
		[]string{"pool", "state"},
	)

	return m
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default returns the process-wide metrics backed by their own registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.NewRegistry())
	})
	return defaultMetrics
}

// ObserveRequest records one completed exchange with the catalog service.
// A status of 0 means no response was obtained.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
	if status == 0 {
		m.NetworkErrors.WithLabelValues(method).Inc()
		return
	}
	m.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// ObserveReindex records the counts reported by one reindex run.
func (m *Metrics) ObserveReindex(projectID int64, processed, failed int) {
	if m == nil {
		return
	}
	label := strconv.FormatInt(projectID, 10)
	m.ReindexProcessed.WithLabelValues(label).Add(float64(processed))
	m.ReindexFailed.WithLabelValues(label).Add(float64(failed))
}

// ObservePool records a snapshot of the named worker pool.
func (m *Metrics) ObservePool(name string, s pool.Stats) {
	if m == nil {
		return
	}
	m.PoolCapacity.WithLabelValues(name).Set(float64(s.Capacity))
	m.PoolRunning.WithLabelValues(name).Set(float64(s.Running))
	m.PoolTasks.WithLabelValues(name, "submitted").Set(float64(s.Submitted))
	m.PoolTasks.WithLabelValues(name, "completed").Set(float64(s.Completed))
	m.PoolTasks.WithLabelValues(name, "rejected").Set(float64(s.Rejected))
	m.PoolTasks.WithLabelValues(name, "panicked").Set(float64(s.Panics))
}

// IncSave records a save outcome.
func (m *Metrics) IncSave(outcome string) {
	if m == nil {
		return
	}
	m.SaveOutcomes.WithLabelValues(outcome).Inc()
}

// IncTransition records an approve/deprecate outcome.
func (m *Metrics) IncTransition(action, outcome string) {
	if m == nil {
		return
	}
	m.TransitionOutcomes.WithLabelValues(action, outcome).Inc()
}

// IncStale records a discarded response for the named session kind.
func (m *Metrics) IncStale(session string) {
	if m == nil {
		return
	}
	m.StaleResponses.WithLabelValues(session).Inc()
}

// IncExpansion records a follow-up full-content fetch.
func (m *Metrics) IncExpansion() {
	if m == nil {
		return
	}
	m.ContentExpansions.Inc()
}

// IncStillTruncated records an artifact that stayed truncated.
func (m *Metrics) IncStillTruncated() {
	if m == nil {
		return
	}
	m.StillTruncated.Inc()
}

// IncInconsistent records a rejected artifact payload.
func (m *Metrics) IncInconsistent() {
	if m == nil {
		return
	}
	m.InconsistentLoads.Inc()
}

// Handler exposes the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
