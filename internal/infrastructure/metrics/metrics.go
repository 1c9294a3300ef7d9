// Package metrics exposes Prometheus counters for the order pipeline
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fulfillment"

// Rate limit kinds
const (
	LimitMessage  = "message"
	LimitCooldown = "cooldown"
	LimitSession  = "session"
)

// Metrics owns a registry and every collector of the service
type Metrics struct {
	registry      *prometheus.Registry
	transitions   *prometheus.CounterVec
	created       *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

// New creates the collectors and registers them with a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Applied sub-order status transitions.",
		}, []string{"category", "from", "to"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suborders_created_total",
			Help:      "Sub-orders created by checkout.",
		}, []string{"category"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_refresh_total",
			Help:      "Upstream cache refresh attempts.",
		}, []string{"cache", "result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests refused by a rate limit.",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Handled HTTP requests.",
		}, []string{"route", "status"}),
		httpDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.transitions, m.created, m.refreshes, m.rateLimited, m.httpRequests, m.httpDurations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Handle counts sub-order events. It implements shared.EventHandler.
func (m *Metrics) Handle(_ context.Context, e shared.DomainEvent) error {
	switch ev := e.(type) {
	case *fulfillment.SubOrderCreatedEvent:
		m.created.WithLabelValues(string(ev.Category)).Inc()
	case *fulfillment.SubOrderAdvancedEvent:
		m.transitions.WithLabelValues(string(ev.Category), string(ev.From), string(ev.To)).Inc()
	}
	return nil
}

// EventTypes implements shared.EventHandler
func (m *Metrics) EventTypes() []string {
	return []string{fulfillment.EventTypeSubOrderCreated, fulfillment.EventTypeSubOrderAdvanced}
}

// ObserveRefresh records a cache refresh attempt. Its signature matches the
// cache refresh observer.
func (m *Metrics) ObserveRefresh(cache string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.refreshes.WithLabelValues(cache, result).Inc()
}

// RateLimited records a refused request
func (m *Metrics) RateLimited(kind string) {
	m.rateLimited.WithLabelValues(kind).Inc()
}

// GinMiddleware records request counts and latency per route
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDurations.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

var _ shared.EventHandler = (*Metrics)(nil)
