package metrics_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-movielens/auth"
	"github.com/goliatone/go-movielens/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCountsAuthEvents(t *testing.T) {
	m := metrics.New()
	ctx := context.Background()

	events := []auth.ActivityEvent{
		{EventType: auth.ActivityEventLoginSuccess, Reason: "ok"},
		{EventType: auth.ActivityEventLoginFailure, Reason: "invalid_credentials"},
		{EventType: auth.ActivityEventLoginFailure, Reason: "invalid_credentials"},
		{EventType: auth.ActivityEventVerified},
		{EventType: auth.ActivityEventRejected, Reason: "expired"},
		{EventType: auth.ActivityEventUserCreated},
	}
	for _, e := range events {
		require.NoError(t, m.Record(ctx, e))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Logins.WithLabelValues("invalid_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsersCreated))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := metrics.New()

	app := fiber.New()
	app.Use(m.Middleware(nil))
	app.Get("/movies/:id", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/movies/1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/movies/:id", "200")))

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "movielens_http_requests_total")
}

func TestMiddlewareUsesStatusResolver(t *testing.T) {
	m := metrics.New()

	app := fiber.New()
	app.Use(m.Middleware(func(error) int { return fiber.StatusNotFound }))
	app.Get("/missing", func(c *fiber.Ctx) error {
		return assert.AnError
	})

	_, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/missing", "404")))
}
