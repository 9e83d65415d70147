// Package prometheus records index and query measurements as Prometheus metrics.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
)

// Ensure Recorder implements the interface.
var _ driven.MetricsRecorder = (*Recorder)(nil)

const namespace = "openpdpa"

// Recorder is a driven.MetricsRecorder backed by its own registry,
// so several recorders can coexist in one process (and in tests).
type Recorder struct {
	registry *prometheus.Registry

	rebuilds      prometheus.Counter
	reuses        prometheus.Counter
	indexedChunks prometheus.Gauge
	rebuildTime   prometheus.Histogram
	stageTime     *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	queries       *prometheus.CounterVec
}

// NewRecorder creates a recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "rebuilds_total",
			Help:      "Completed index rebuilds.",
		}),
		reuses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "reuses_total",
			Help:      "Index checks that kept the existing collection.",
		}),
		indexedChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "chunks",
			Help:      "Chunks written by the last rebuild.",
		}),
		rebuildTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "rebuild_seconds",
			Help:      "Duration of index rebuilds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		stageTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "stage_seconds",
			Help:      "Duration of query pipeline stages.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "stage_errors_total",
			Help:      "Query pipeline stages that failed.",
		}, []string{"stage"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "finished_total",
			Help:      "Queries by terminal stage.",
		}, []string{"terminal"}),
	}

	r.registry.MustRegister(
		r.rebuilds,
		r.reuses,
		r.indexedChunks,
		r.rebuildTime,
		r.stageTime,
		r.stageErrors,
		r.queries,
	)
	return r
}

// IndexRebuilt implements driven.MetricsRecorder.
func (r *Recorder) IndexRebuilt(chunks int, elapsed time.Duration) {
	r.rebuilds.Inc()
	r.indexedChunks.Set(float64(chunks))
	r.rebuildTime.Observe(elapsed.Seconds())
}

// IndexReused implements driven.MetricsRecorder.
func (r *Recorder) IndexReused() {
	r.reuses.Inc()
}

// StageCompleted implements driven.MetricsRecorder.
func (r *Recorder) StageCompleted(stage domain.Stage, elapsed time.Duration, err error) {
	r.stageTime.WithLabelValues(stage.String()).Observe(elapsed.Seconds())
	if err != nil {
		r.stageErrors.WithLabelValues(stage.String()).Inc()
	}
}

// QueryFinished implements driven.MetricsRecorder.
func (r *Recorder) QueryFinished(terminal domain.Stage) {
	r.queries.WithLabelValues(terminal.String()).Inc()
}

// Handler serves the recorder's metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
