package ai

import (
	appmetrics "skitgen/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	TTSQueryTime    *prometheus.HistogramVec
	TTSAudioSeconds prometheus.Histogram
	TTSErrors       *prometheus.CounterVec
}

var metrics = &Metrics{
	TTSQueryTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: "tts",
		Name:      "request_seconds",
		Buckets:   appmetrics.RequestSecondsBuckets,
	}, []string{"voice_mode"}),
	TTSAudioSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: "tts",
		Name:      "audio_seconds",
		Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32},
	}),
	TTSErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "tts",
		Name:      "errors_total",
	}, []string{"err_code"}),
}

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(metrics.TTSQueryTime)
	reg.MustRegister(metrics.TTSAudioSeconds)
	reg.MustRegister(metrics.TTSErrors)
}
