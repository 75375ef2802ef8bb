package hubrest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK          = "ok"
	resultRejected    = "rejected"
	resultUnreachable = "unreachable"
)

var (
	hubRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "broker",
		Subsystem: "hub",
		Name:      "requests_total",
		Help:      "Number of requests sent to the hub by operation and result.",
	}, []string{"op", "result"})

	hubRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "broker",
		Subsystem: "hub",
		Name:      "request_duration_seconds",
		Help:      "Latency of the requests sent to the hub.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	hubState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "broker",
		Subsystem: "hub",
		Name:      "state",
		Help:      "Registration state: 0 disconnected, 1 registering, 2 registered.",
	})
)
