package verification

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bdivp_nid_upstream_calls_total",
		Help: "NID registry calls by verification type and outcome.",
	}, []string{"type", "outcome"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bdivp_nid_upstream_duration_seconds",
		Help:    "Latency of NID registry calls.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"type"})
)

func observeUpstreamCall(typ Type, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	upstreamCalls.WithLabelValues(string(typ), outcome).Inc()
}

// timeUpstream returns a stop func for the latency histogram.
func timeUpstream(typ Type) func() {
	start := time.Now()
	return func() {
		upstreamDuration.WithLabelValues(string(typ)).Observe(time.Since(start).Seconds())
	}
}
