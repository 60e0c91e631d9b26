// Package metrics exposes Prometheus counters for the auth core and the HTTP
// surface.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/goliatone/go-movielens/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "movielens"

// Metrics owns a registry so tests and multiple apps do not collide on the
// global one.
type Metrics struct {
	registry *prometheus.Registry

	// Logins counts login attempts.
	// Labels:
	//   - result: "ok" or an auth.ReasonFor label
	Logins *prometheus.CounterVec

	// Verifications counts bearer token checks.
	// Labels:
	//   - result: "ok" or an auth.ReasonFor label
	Verifications *prometheus.CounterVec

	// UsersCreated counts identities added through the API or seeding.
	UsersCreated prometheus.Counter

	// Requests counts handled HTTP requests.
	Requests *prometheus.CounterVec

	// RequestDuration measures handler latency.
	RequestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "logins_total",
				Help:      "Total number of login attempts",
			},
			[]string{"result"},
		),
		Verifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "verifications_total",
				Help:      "Total number of bearer token verifications",
			},
			[]string{"result"},
		),
		UsersCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "users_created_total",
				Help:      "Total number of identities created",
			},
		),
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
	}
}

// Registry returns the registry backing the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Record implements auth.ActivitySink
func (m *Metrics) Record(_ context.Context, event auth.ActivityEvent) error {
	result := event.Reason
	if result == "" {
		result = "ok"
	}

	switch event.EventType {
	case auth.ActivityEventLoginSuccess, auth.ActivityEventLoginFailure:
		m.Logins.WithLabelValues(result).Inc()
	case auth.ActivityEventVerified, auth.ActivityEventRejected:
		m.Verifications.WithLabelValues(result).Inc()
	case auth.ActivityEventUserCreated:
		m.UsersCreated.Inc()
	}
	return nil
}

var _ auth.ActivitySink = (*Metrics)(nil)

// Middleware records request counts and latency per matched route. Errors
// are rendered after it returns, so statusOf resolves their status code.
func (m *Metrics) Middleware(statusOf func(error) int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			switch {
			case statusOf != nil:
				status = statusOf(err)
			case status < http.StatusBadRequest:
				status = http.StatusInternalServerError
			}
		}

		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}

		m.Requests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
