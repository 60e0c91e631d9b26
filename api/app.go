// Package api exposes the auth core and the MovieLens catalog over HTTP.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-movielens/auth"
	"github.com/goliatone/go-movielens/metrics"
	"github.com/goliatone/go-movielens/middleware/jwtware"
	"github.com/goliatone/go-movielens/repository"
)

// Dependencies is everything NewApp wires into routes
type Dependencies struct {
	Manager       *repository.Manager
	Authenticator auth.Authenticator
	Verifier      auth.TokenVerifier
	CreateUser    *auth.CreateUserHandler
	Logger        auth.Logger
	ActivitySink  auth.ActivitySink
	// Metrics is optional, nil disables /metrics
	Metrics *metrics.Metrics
	// Analyzer is optional, nil disables image analysis routes
	Analyzer ImageAnalyzer
	Debug    bool
}

// NewApp builds the fiber application with every route mounted
func NewApp(deps Dependencies) *fiber.App {
	if deps.Manager == nil {
		panic("Missing repository manager in api...")
	}
	if deps.Logger == nil {
		deps.Logger = auth.NopLogger{}
	}

	app := fiber.New(fiber.Config{
		AppName:               "movielens",
		ErrorHandler:          NewErrorHandler(deps.Logger),
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(requestLogger(deps.Logger))
	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware(StatusOf))
		app.Get("/metrics", deps.Metrics.Handler())
	}

	authenticated := jwtware.New(jwtware.Config{
		Verifier:     deps.Verifier,
		ActivitySink: deps.ActivitySink,
	})
	admin := jwtware.New(jwtware.Config{
		Verifier:     deps.Verifier,
		RequiredRole: auth.RoleAdmin,
		ActivitySink: deps.ActivitySink,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"hello": "world"})
	})

	NewAuthController(
		WithAuthLogger(deps.Logger),
		WithAuthenticator(deps.Authenticator),
		WithUsers(deps.Manager.Users(), deps.CreateUser),
		WithAuthActivitySink(deps.ActivitySink),
		WithAuthDebug(deps.Debug),
	).Register(app, authenticated, admin)

	NewMovieController(deps.Manager).Register(app, authenticated)
	NewLinkController(deps.Manager).Register(app)
	NewRatingController(deps.Manager).Register(app)
	NewTagController(deps.Manager).Register(app)

	if deps.Analyzer != nil {
		NewAnalysisController(deps.Analyzer).Register(app)
	}

	return app
}

func requestLogger(logger auth.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = StatusOf(err)
		}

		logger.Info("request",
			"request_id", c.Locals("requestid"),
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start),
		)
		return err
	}
}
