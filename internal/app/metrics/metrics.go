package metrics

import (
	"skitgen/pkg/ai"
	"skitgen/pkg/ffmpeg"
	"skitgen/pkg/llm"
	appmetrics "skitgen/pkg/metrics"
	"skitgen/pkg/ws"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RunTime      *prometheus.HistogramVec
	StageTime    *prometheus.HistogramVec
	StageErrors  *prometheus.CounterVec
	RunsInFlight prometheus.Gauge
}

// Pipeline is observed by every run regardless of whether it is registered.
var Pipeline = &Metrics{
	RunTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pipeline",
		Subsystem: "run",
		Name:      "seconds",
		Buckets:   appmetrics.RequestSecondsBuckets,
	}, []string{"mode", "status"}),
	StageTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pipeline",
		Subsystem: "stage",
		Name:      "seconds",
		Buckets:   appmetrics.RequestSecondsBuckets,
	}, []string{"stage"}),
	StageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeline",
		Subsystem: "stage",
		Name:      "errors_total",
	}, []string{"stage"}),
	RunsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pipeline",
		Subsystem: "run",
		Name:      "in_flight",
	}),
}

// RegisterMetrics registers the pipeline metrics and those of every client it drives.
func RegisterMetrics(reg prometheus.Registerer) {
	ws.RegisterMetrics(reg)
	llm.RegisterMetrics(reg)
	ai.RegisterMetrics(reg)
	ffmpeg.RegisterMetrics(reg)

	reg.MustRegister(Pipeline.RunTime)
	reg.MustRegister(Pipeline.StageTime)
	reg.MustRegister(Pipeline.StageErrors)
	reg.MustRegister(Pipeline.RunsInFlight)
}
