package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	return c, reg
}

func TestObserveSolve(t *testing.T) {
	c, _ := newCollector(t)
	c.ObserveSolve("optimal", 3*time.Millisecond)
	c.ObserveSolve("optimal", time.Millisecond)
	c.ObserveSolve("infeasible", time.Millisecond)

	if got := testutil.ToFloat64(c.Solves.WithLabelValues("optimal")); got != 2 {
		t.Errorf("fba_solves_total{optimal} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Solves.WithLabelValues("infeasible")); got != 1 {
		t.Errorf("fba_solves_total{infeasible} = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(c.SolveDurations); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestObservePoint(t *testing.T) {
	c, _ := newCollector(t)
	c.ObservePoint(true)
	c.ObservePoint(false)
	c.ObservePoint(false)
	if got := testutil.ToFloat64(c.SweepPoints.WithLabelValues("failed")); got != 2 {
		t.Errorf("failed points = %v, want 2", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ObserveSolve("optimal", time.Second)
	c.ObservePoint(true)
	c.ObserveReload()
}

func TestNewCollector_ReusesRegistered(t *testing.T) {
	c1, reg := newCollector(t)
	c2, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}
	c2.ObserveReload()
	if got := testutil.ToFloat64(c1.NetworkReloads); got != 1 {
		t.Errorf("reloads seen through first collector = %v, want 1", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	c, _ := newCollector(t)
	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", c.Handler())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/runs/abc", nil))
	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/runs/{id}", "404")); got != 1 {
		t.Errorf("http_requests_total = %v, want 1", got)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), "http_requests_total") {
		t.Errorf("metrics output missing counter:\n%s", rr.Body.String())
	}
}
