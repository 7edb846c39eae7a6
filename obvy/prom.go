package ritornello

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsInternal is the internal prometheus surface of the service.
// It carries its own registry so tests can build as many as they like
// without default-registry collisions.
type StatsInternal struct {
	Reg *prometheus.Registry

	wwwCount   *prometheus.CounterVec
	ingested   prometheus.Counter
	scored     prometheus.Counter
	fitSeconds prometheus.Histogram
	wsClients  prometheus.Gauge
}

// NewStatsInternal creates an attached prometheus registry
// along with every metric the service records.
func NewStatsInternal() *StatsInternal {
	reg := prometheus.NewRegistry()

	s := &StatsInternal{
		Reg: reg,
		wwwCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ritornello_http_responses_total",
			Help: "HTTP responses by status code and method",
		}, []string{"code", "method"}),
		ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ritornello_events_ingested_total",
			Help: "Timestamps routed into the pattern set",
		}),
		scored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ritornello_timestamps_scored_total",
			Help: "Timestamps scored by the likelihood endpoint",
		}),
		fitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ritornello_density_fit_seconds",
			Help:    "Wall time of density curve derivations",
			Buckets: prometheus.DefBuckets,
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ritornello_websocket_clients",
			Help: "Connected websocket clients",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		s.wwwCount, s.ingested, s.scored, s.fitSeconds, s.wsClients,
	)
	return s
}

// Handler serves the /metrics endpoint off the attached registry.
func (s *StatsInternal) Handler() http.Handler {
	return promhttp.HandlerFor(s.Reg, promhttp.HandlerOpts{})
}

// RecWWW counts one HTTP response
func (s *StatsInternal) RecWWW(code, method string) {
	s.wwwCount.WithLabelValues(code, method).Inc()
}

// RecIngest counts timestamps routed into the set
func (s *StatsInternal) RecIngest(n int) {
	s.ingested.Add(float64(n))
}

// RecScored counts timestamps scored for likelihood
func (s *StatsInternal) RecScored(n int) {
	s.scored.Add(float64(n))
}

// RecFitTimer records one density derivation duration
func (s *StatsInternal) RecFitTimer(seconds float64) {
	s.fitSeconds.Observe(seconds)
}

// WSClientUp marks a websocket client arriving
func (s *StatsInternal) WSClientUp() {
	s.wsClients.Inc()
}

// WSClientDown marks a websocket client leaving
func (s *StatsInternal) WSClientDown() {
	s.wsClients.Dec()
}
