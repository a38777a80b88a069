// Package observability exposes Prometheus metrics for solves, sweeps and
// HTTP requests.
package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the service metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	Solves         *prometheus.CounterVec
	SolveDurations prometheus.Histogram
	SweepPoints    *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	NetworkReloads prometheus.Counter
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil. Registering twice on the same registry
// reuses the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	solves, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fba_solves_total",
		Help: "Flux balance solves by normalized status.",
	}, []string{"status"}))
	if err != nil {
		return nil, err
	}
	durations, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fba_solve_duration_seconds",
		Help:    "Wall-clock duration of flux balance solves.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}))
	if err != nil {
		return nil, err
	}
	points, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electrochem_sweep_points_total",
		Help: "Potential sweep points by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route pattern and status code.",
	}, []string{"method", "route", "code"}))
	if err != nil {
		return nil, err
	}
	reloads, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "network_reloads_total",
		Help: "Base network reloads picked up from disk.",
	}))
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		Solves:         solves,
		SolveDurations: durations,
		SweepPoints:    points,
		HTTPRequests:   requests,
		NetworkReloads: reloads,
	}, nil
}

// ObserveSolve records one solve outcome.
func (c *Collector) ObserveSolve(status string, d time.Duration) {
	if c == nil {
		return
	}
	c.Solves.WithLabelValues(status).Inc()
	c.SolveDurations.Observe(d.Seconds())
}

// ObservePoint records one sweep point outcome.
func (c *Collector) ObservePoint(ok bool) {
	if c == nil {
		return
	}
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	c.SweepPoints.WithLabelValues(outcome).Inc()
}

// ObserveReload counts a network reload.
func (c *Collector) ObserveReload() {
	if c == nil {
		return
	}
	c.NetworkReloads.Inc()
}

// Middleware counts requests by chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if c == nil {
			return
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, fmt.Errorf("observability: collector already registered with incompatible type: %w", err)
		}
		var zero C
		return zero, fmt.Errorf("observability: register: %w", err)
	}
	return c, nil
}
