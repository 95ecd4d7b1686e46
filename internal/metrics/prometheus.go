package metrics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
)

// PrometheusSink exposes pipeline metrics as Prometheus collectors. It
// satisfies the engine's MetricsSink contract structurally.
type PrometheusSink struct {
	logger *slog.Logger

	activations *prometheus.CounterVec
	errors      *prometheus.CounterVec
	processing  prometheus.Histogram
	upload      prometheus.Histogram
}

// NewPrometheusSink registers the pipeline collectors on reg and returns the
// sink. A nil registerer falls back to the default Prometheus registry.
func NewPrometheusSink(reg prometheus.Registerer, logger *slog.Logger) *PrometheusSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &PrometheusSink{
		logger: logger,
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asset_pipeline",
			Name:      "activations_total",
			Help:      "Engine activations by metric kind.",
		}, []string{"kind"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asset_pipeline",
			Name:      "errors_total",
			Help:      "Errors reported by the engine, by location.",
		}, []string{"location"}),
		processing: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "asset_pipeline",
			Name:      "processing_duration_seconds",
			Help:      "Total plan processing duration.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		upload: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "asset_pipeline",
			Name:      "upload_duration_seconds",
			Help:      "Final rendition upload duration.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	reg.MustRegister(s.activations, s.errors, s.processing, s.upload)

	return s
}

// Add is a no-op: aggregation happens in the engine's Aggregator and reaches
// the sink through Send.
func (s *PrometheusSink) Add(map[string]interface{}) {}

// Send projects aggregated fields onto the Prometheus collectors.
func (s *PrometheusSink) Send(_ context.Context, kind string, fields map[string]interface{}) error {
	s.activations.WithLabelValues(kind).Inc()

	if ms, ok := maputil.GetNumber(fields, "processingDuration"); ok {
		s.processing.Observe(ms / 1000)
	}

	if ms, ok := maputil.GetNumber(fields, "uploadDuration"); ok {
		s.upload.Observe(ms / 1000)
	}

	return nil
}

// HandleError counts an error by location and logs it.
func (s *PrometheusSink) HandleError(err error, location string) {
	if location == "" {
		location = "unknown"
	}

	s.errors.WithLabelValues(location).Inc()
	s.logger.Error("pipeline error", slog.String("location", location), slog.String("error", err.Error()))
}
