// Package metrics holds the Prometheus collectors of the research agent.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	Requests        *prometheus.CounterVec
	Terminal        *prometheus.CounterVec
	ToolCalls       *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	InFlightStreams prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "research_agent_requests_total",
				Help: "Pipeline requests by chosen lane",
			},
			[]string{"lane"},
		),
		Terminal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "research_agent_terminal_events_total",
				Help: "Terminal events by kind",
			},
			[]string{"kind"},
		),
		ToolCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "research_agent_tool_calls_total",
				Help: "Tool invocations by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "research_agent_stage_duration_seconds",
				Help:    "Time spent in each pipeline stage",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "research_agent_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "research_agent_http_request_duration_seconds",
				Help: "HTTP request duration in seconds",
			},
			[]string{"method", "route"},
		),
		InFlightStreams: f.NewGauge(prometheus.GaugeOpts{
			Name: "research_agent_in_flight_streams",
			Help: "Event streams currently open",
		}),
	}
}

func (m *Metrics) ObserveLane(lane string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(lane).Inc()
}

func (m *Metrics) ObserveTerminal(kind string) {
	if m == nil {
		return
	}
	m.Terminal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveTool(tool string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// WatchCache exports the counters of a response cache, read at scrape time.
func WatchCache(reg prometheus.Registerer, name string, stats func() (hits, misses uint64)) {
	f := promauto.With(reg)
	f.NewCounterFunc(prometheus.CounterOpts{
		Name:        "research_agent_cache_hits_total",
		Help:        "Model response cache hits",
		ConstLabels: prometheus.Labels{"cache": name},
	}, func() float64 {
		h, _ := stats()
		return float64(h)
	})
	f.NewCounterFunc(prometheus.CounterOpts{
		Name:        "research_agent_cache_misses_total",
		Help:        "Model response cache misses",
		ConstLabels: prometheus.Labels{"cache": name},
	}, func() float64 {
		_, m := stats()
		return float64(m)
	})
}

// StreamOpened bumps the in-flight gauge and returns its release func.
func (m *Metrics) StreamOpened() func() {
	if m == nil {
		return func() {}
	}
	m.InFlightStreams.Inc()
	return m.InFlightStreams.Dec
}
