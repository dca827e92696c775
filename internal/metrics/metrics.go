package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unklstewy/adsb-terminal/pkg/adsb"
)

// Ensure Registry can observe the poller
var _ adsb.PollObserver = (*Registry)(nil)

// Registry holds all Prometheus metrics for adsb-terminal on a private
// prometheus.Registry, so several instances can coexist in tests.
type Registry struct {
	reg *prometheus.Registry

	// Feed Metrics
	PollsTotal     *prometheus.CounterVec
	PollDuration   prometheus.Histogram
	StaleResults   prometheus.Counter
	AircraftInView prometheus.Gauge

	// Reference Data Metrics
	ReferenceRecords *prometheus.GaugeVec

	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewRegistry initializes and returns a new Registry with all metrics
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,

		// Feed Metrics
		PollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adsb_terminal_polls_total",
				Help: "Applied feed polls by outcome",
			},
			[]string{"outcome"},
		),
		PollDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "adsb_terminal_poll_duration_seconds",
				Help:    "Feed poll latency including retries, in seconds",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		StaleResults: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "adsb_terminal_stale_results_total",
				Help: "Poll results discarded because a newer poll was already applied",
			},
		),
		AircraftInView: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "adsb_terminal_aircraft_tracked",
				Help: "Aircraft in the most recently applied poll",
			},
		),

		// Reference Data Metrics
		ReferenceRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "adsb_terminal_reference_records",
				Help: "Records loaded per reference table",
			},
			[]string{"table"},
		),

		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adsb_terminal_http_requests_total",
				Help: "Status server requests by route, method, and status code",
			},
			[]string{"route", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adsb_terminal_http_request_duration_seconds",
				Help:    "Status server latency distribution in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"route", "method"},
		),
	}
}

// PollCompleted records an applied poll.
func (r *Registry) PollCompleted(outcome string, duration time.Duration, aircraft int) {
	r.PollsTotal.WithLabelValues(outcome).Inc()
	r.PollDuration.Observe(duration.Seconds())
	if outcome == adsb.OutcomeSuccess {
		r.AircraftInView.Set(float64(aircraft))
	}
}

// PollDiscarded records a stale poll result.
func (r *Registry) PollDiscarded() {
	r.StaleResults.Inc()
}

// SetReferenceRecords records the size of a reference table.
func (r *Registry) SetReferenceRecords(table string, n int) {
	r.ReferenceRecords.WithLabelValues(table).Set(float64(n))
}

// ObserveHTTP records one status server request.
func (r *Registry) ObserveHTTP(route, method, statusCode string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(route, method, statusCode).Inc()
	r.HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
