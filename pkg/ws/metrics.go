package ws

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Connections  prometheus.Gauge
	MessagesSent prometheus.Counter
	WriteErrors  prometheus.Counter
}

var metrics = &Metrics{
	Connections: prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: "websockets",
		Name:      "conns_total",
	}),
	MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "websockets",
		Name:      "messages_sent_total",
	}),
	WriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "websockets",
		Name:      "write_errors_total",
	}),
}

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(metrics.Connections)
	reg.MustRegister(metrics.MessagesSent)
	reg.MustRegister(metrics.WriteErrors)
}
