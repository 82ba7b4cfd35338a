// Package metrics exposes Prometheus counters for the HTTP API and idea
// lifecycle.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/ideacards/internal/idea"
)

const namespace = "ideacards"

// Collector holds all Prometheus metrics for the application. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	IdeasCreated      prometheus.Counter
	IdeasUpdated      prometheus.Counter
	StatusTransitions *prometheus.CounterVec
	Exports           *prometheus.CounterVec
	InboxCaptured     prometheus.Counter
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		IdeasCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ideas_created_total",
			Help:      "Total number of ideas created",
		}),
		IdeasUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ideas_updated_total",
			Help:      "Total number of idea content updates",
		}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idea_status_transitions_total",
			Help:      "Status changes by target status",
		}, []string{"status"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dictionary_exports_total",
			Help:      "Transferred ideas written to the dictionary vault",
		}, []string{"result"}),
		InboxCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbox_captured_total",
			Help:      "Ideas created from inbox files",
		}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.IdeasCreated,
		c.IdeasUpdated,
		c.StatusTransitions,
		c.Exports,
		c.InboxCaptured,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// IdeaCreated counts a new idea.
func (c *Collector) IdeaCreated() {
	if c == nil {
		return
	}
	c.IdeasCreated.Inc()
}

// IdeaUpdated counts a content update.
func (c *Collector) IdeaUpdated() {
	if c == nil {
		return
	}
	c.IdeasUpdated.Inc()
}

// StatusChanged counts a transition into s.
func (c *Collector) StatusChanged(s idea.Status) {
	if c == nil {
		return
	}
	c.StatusTransitions.WithLabelValues(string(s)).Inc()
}

// Exported counts a dictionary export attempt.
func (c *Collector) Exported(err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Exports.WithLabelValues(result).Inc()
}

// Captured counts an idea created from the inbox.
func (c *Collector) Captured() {
	if c == nil {
		return
	}
	c.InboxCaptured.Inc()
}
