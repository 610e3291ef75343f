package llm

import (
	appmetrics "skitgen/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	LLMQueryTime *prometheus.HistogramVec
	LLMErrors    *prometheus.CounterVec
}

var metrics = &Metrics{
	LLMQueryTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: "llm",
		Name:      "request_seconds",
		Buckets:   appmetrics.RequestSecondsBuckets,
	}, []string{"provider"}),
	LLMErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "llm",
		Name:      "errors_total",
	}, []string{"provider", "err_code"}),
}

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(metrics.LLMQueryTime)
	reg.MustRegister(metrics.LLMErrors)
}
