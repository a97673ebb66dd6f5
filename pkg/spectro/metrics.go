package spectro

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the controller's Prometheus collectors.
type Metrics struct {
	Cycles              prometheus.Counter
	ReadFailures        prometheus.Counter
	AggregationFailures prometheus.Counter
	EmitFailures        prometheus.Counter
	Predictions         *prometheus.CounterVec
	InferenceLatency    prometheus.Histogram
	SamplingPeriod      prometheus.Gauge
	Commands            *prometheus.CounterVec
	State               prometheus.Gauge
}

// NewMetrics registers the controller collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Cycles: f.NewCounter(prometheus.CounterOpts{
			Name: "spectro_cycles_total",
			Help: "Sampling passes started",
		}),
		ReadFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "spectro_sensor_read_failures_total",
			Help: "Individual sensor reads that failed",
		}),
		AggregationFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "spectro_aggregation_failures_total",
			Help: "Sampling passes where every read failed",
		}),
		EmitFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "spectro_emit_failures_total",
			Help: "Records that could not be written to the output stream",
		}),
		Predictions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spectro_predictions_total",
			Help: "Predictions by class",
		}, []string{"class"}),
		InferenceLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "spectro_inference_latency_seconds",
			Help:    "Forward pass latency",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 8),
		}),
		SamplingPeriod: f.NewGauge(prometheus.GaugeOpts{
			Name: "spectro_sampling_period_seconds",
			Help: "Configured time between sampling passes",
		}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spectro_commands_total",
			Help: "Operator commands by kind",
		}, []string{"kind"}),
		State: f.NewGauge(prometheus.GaugeOpts{
			Name: "spectro_state",
			Help: "Current controller state",
		}),
	}
}
