package jwtware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-movielens/auth"
	"github.com/goliatone/go-movielens/middleware/jwtware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var signingKey = []byte("jwtware-test-secret-key")

func newService(t *testing.T, clock auth.Clock) *auth.TokenServiceImpl {
	t.Helper()
	ts, err := auth.NewTokenService(auth.TokenConfig{
		SigningKey: signingKey,
		Clock:      clock,
		Logger:     auth.NopLogger{},
	})
	require.NoError(t, err)
	return ts
}

func issue(t *testing.T, ts *auth.TokenServiceImpl, subject string, roles ...auth.Role) string {
	t.Helper()
	token, err := ts.Issue(subject, auth.Roles(roles))
	require.NoError(t, err)
	return token
}

// errorApp renders errors as their text code so tests can tell them apart
func errorApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).SendString(err.Error())
		},
	})
}

func TestMiddleware(t *testing.T) {
	ts := newService(t, nil)
	expired := newService(t, func() time.Time { return time.Now().Add(-2 * time.Hour) })

	app := errorApp()
	app.Get("/me", jwtware.New(jwtware.Config{Verifier: ts}), func(c *fiber.Ctx) error {
		claims, ok := jwtware.GetClaims(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		fromCtx, ok := auth.GetClaims(c.UserContext())
		if !ok || fromCtx.Subject != claims.Subject {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(claims.Subject)
	})

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + issue(t, ts, "alice", auth.RoleUser), fiber.StatusOK, "alice"},
		{"missing", "", fiber.StatusUnauthorized, "Authorization header missing"},
		{"wrong scheme", "Basic abc", fiber.StatusUnauthorized, "Invalid authorization header format"},
		{"garbage", "Bearer not.a.token", fiber.StatusUnauthorized, "Invalid token"},
		{"expired", "Bearer " + issue(t, expired, "alice"), fiber.StatusUnauthorized, "Token has expired"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			body := make([]byte, 256)
			n, _ := resp.Body.Read(body)
			assert.Contains(t, string(body[:n]), tc.body)
		})
	}
}

func TestRequiredRole(t *testing.T) {
	ts := newService(t, nil)

	var status int
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status = fiber.StatusUnauthorized
			if auth.IsInsufficientRoleError(err) {
				status = fiber.StatusForbidden
			}
			return c.SendStatus(status)
		},
	})
	app.Get("/admin", jwtware.New(jwtware.Config{Verifier: ts, RequiredRole: auth.RoleAdmin}), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, ts, "bob", auth.RoleUser))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, ts, "root", auth.RoleAdmin, auth.RoleUser))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestValidationListeners(t *testing.T) {
	ts := newService(t, nil)

	var seen []string
	app := errorApp()
	app.Get("/admin", jwtware.New(jwtware.Config{
		Verifier:     ts,
		RequiredRole: auth.RoleAdmin,
		ValidationListeners: []jwtware.ValidationListener{
			func(c *fiber.Ctx, claims *auth.Claims) error {
				seen = append(seen, claims.Subject)
				if claims.Subject == "banned" {
					return fiber.NewError(fiber.StatusUnauthorized, "Account disabled")
				}
				return nil
			},
		},
	}), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	cases := []struct {
		name    string
		subject string
		roles   []auth.Role
		status  int
		body    string
	}{
		{"listener rejects before role check", "banned", []auth.Role{auth.RoleUser}, fiber.StatusUnauthorized, "Account disabled"},
		{"role check after listener", "bob", []auth.Role{auth.RoleUser}, fiber.StatusUnauthorized, "Admin access required"},
		{"admin passes", "root", []auth.Role{auth.RoleAdmin}, fiber.StatusOK, "ok"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+issue(t, ts, tc.subject, tc.roles...))
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			body := make([]byte, 256)
			n, _ := resp.Body.Read(body)
			assert.Contains(t, string(body[:n]), tc.body)
		})
	}

	assert.Equal(t, []string{"banned", "bob", "root"}, seen)

	resp, err := app.Test(httptest.NewRequest("GET", "/admin", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Len(t, seen, 3)
}

func TestCookieLookupFilterAndActivity(t *testing.T) {
	ts := newService(t, nil)

	var events []auth.ActivityEvent
	sink := auth.ActivitySinkFunc(func(_ context.Context, e auth.ActivityEvent) error {
		events = append(events, e)
		return nil
	})

	app := errorApp()
	app.Use(jwtware.New(jwtware.Config{
		Verifier:     ts,
		TokenLookup:  "header:Authorization,cookie:jwt",
		ContextKey:   "claims",
		ActivitySink: sink,
		Filter: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
	}))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("up") })
	app.Get("/me", func(c *fiber.Ctx) error {
		claims, ok := jwtware.GetClaims(c, "claims")
		require.True(t, ok)
		return c.SendString(claims.Subject)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, events)

	req := httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: issue(t, ts, "carol")})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	require.Len(t, events, 2)
	assert.Equal(t, auth.ActivityEventVerified, events[0].EventType)
	assert.Equal(t, "carol", events[0].Subject)
	assert.Equal(t, auth.ActivityEventRejected, events[1].EventType)
	assert.Equal(t, "missing_authorization", events[1].Reason)
}

func TestNewPanicsWithoutVerifier(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.New(jwtware.Config{})
	})
}
