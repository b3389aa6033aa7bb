package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"reelup/internal/upload"
)

const namespace = "reelup"

// OutcomeSuccess labels uploads that completed and attached (when asked to).
const OutcomeSuccess = "success"

// Metrics implements upload.Observer. Collectors live in a private registry
// so several instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	chunks      prometheus.Counter
	bytes       prometheus.Counter
	retries     *prometheus.CounterVec
	backoff     prometheus.Histogram
	outcomes    *prometheus.CounterVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
}

// New builds and registers the upload collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_committed_total",
			Help:      "Chunks acknowledged by the upload service",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes acknowledged by the upload service",
		}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retries scheduled after a retriable failure",
		}, []string{"kind", "status"}),
		backoff: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retry_backoff_seconds",
			Help:      "Backoff delay chosen before each retry",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Finished uploads by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Wall time of each upload including retries and attachment",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the most recent successful upload",
		}),
	}
	m.registry.MustRegister(
		m.chunks,
		m.bytes,
		m.retries,
		m.backoff,
		m.outcomes,
		m.duration,
		m.lastSuccess,
	)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ChunkCommitted implements upload.Observer.
func (m *Metrics) ChunkCommitted(_, _ int64) {
	m.chunks.Inc()
}

// RetryScheduled implements upload.Observer.
func (m *Metrics) RetryScheduled(class upload.Classification, _ int, delay time.Duration) {
	status := "none"
	if class.StatusCode != 0 {
		status = fmt.Sprint(class.StatusCode)
	}
	m.retries.WithLabelValues(string(class.Kind), status).Inc()
	m.backoff.Observe(delay.Seconds())
}

// UploadFinished implements upload.Observer.
func (m *Metrics) UploadFinished(outcome upload.Outcome, elapsed time.Duration) {
	m.bytes.Add(float64(outcome.Bytes))
	m.duration.Observe(elapsed.Seconds())
	m.outcomes.WithLabelValues(OutcomeLabel(outcome)).Inc()
	if outcome.Err == nil {
		m.lastSuccess.SetToCurrentTime()
	}
}

// OutcomeLabel maps an outcome to its metric label.
func OutcomeLabel(outcome upload.Outcome) string {
	if kind := outcome.Kind(); kind != "" {
		return string(kind)
	}
	return OutcomeSuccess
}

// WriteTextfile writes the registry to path for the node_exporter textfile
// collector. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
