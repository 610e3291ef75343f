package ffmpeg

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RenderTime   prometheus.Histogram
	RenderErrors *prometheus.CounterVec
}

var metrics = &Metrics{
	RenderTime: prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: "render",
		Name:      "duration_seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
	}),
	RenderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "render",
		Name:      "errors_total",
	}, []string{"err_code"}),
}

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(metrics.RenderTime)
	reg.MustRegister(metrics.RenderErrors)
}
