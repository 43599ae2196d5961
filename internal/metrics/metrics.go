// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is private to the service so tests never collide with the default one.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Polls counts sensor fetch attempts by result (ok, transport, status, decode, breaker).
	Polls = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dht",
		Name:      "polls_total",
		Help:      "Sensor fetch attempts by result.",
	}, []string{"result"})

	// Submissions counts write endpoint submissions by result.
	Submissions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dht",
		Name:      "submissions_total",
		Help:      "Write endpoint submissions by result.",
	}, []string{"result"})

	Records = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "dht",
		Name:      "store_records",
		Help:      "Records currently held in the history.",
	})

	PersistFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "dht",
		Name:      "persist_failures_total",
		Help:      "Failed rewrites of the history file.",
	})

	PersistDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dht",
		Name:      "persist_duration_seconds",
		Help:      "Time spent rewriting the history file.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
