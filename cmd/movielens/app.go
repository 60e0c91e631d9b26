package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-movielens/activitymap"
	"github.com/goliatone/go-movielens/analysis"
	"github.com/goliatone/go-movielens/api"
	"github.com/goliatone/go-movielens/auth"
	"github.com/goliatone/go-movielens/config"
	"github.com/goliatone/go-movielens/database"
	"github.com/goliatone/go-movielens/logging"
	"github.com/goliatone/go-movielens/metrics"
	"github.com/goliatone/go-movielens/repository"
	"github.com/goliatone/go-movielens/seed"
	"github.com/uptrace/bun"
)

// App holds the services shared by every subcommand
type App struct {
	config   *config.Config
	logger   *logging.Adapter
	bunDB    *bun.DB
	repo     *repository.Manager
	hasher   auth.Hasher
	tokens   *auth.TokenServiceImpl
	auther   *auth.Auther
	metrics  *metrics.Metrics
	analyzer *analysis.Service
	srv      *fiber.App
}

type Step func(ctx context.Context, app *App) error

// Setup runs steps in order and stops on the first error
func (a *App) Setup(ctx context.Context, steps ...Step) error {
	for _, step := range steps {
		if err := step(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) GetLogger(name string) *logging.Adapter {
	return a.logger.Named(name)
}

func WithDatabase(ctx context.Context, app *App) error {
	db, err := database.Open(ctx, app.config.Database())
	if err != nil {
		return err
	}
	app.bunDB = db
	return nil
}

func WithMigrations(ctx context.Context, app *App) error {
	return database.Migrate(ctx, app.bunDB, app.GetLogger("migrate"))
}

func WithRepository(_ context.Context, app *App) error {
	app.hasher = auth.NewHasher(app.config.BcryptCost)
	app.repo = repository.NewManager(app.bunDB, auth.WithHasher(app.hasher))
	app.repo.MustValidate()
	return nil
}

func WithAuth(_ context.Context, app *App) error {
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		SigningKey: []byte(app.config.JWTSecret),
		TTL:        app.config.TokenTTL(),
		Issuer:     app.config.JWTIssuer,
		Logger:     app.GetLogger("token"),
	})
	if err != nil {
		return err
	}
	app.tokens = tokens

	if app.config.MetricsEnabled {
		app.metrics = metrics.New()
	}

	provider := auth.NewUserProvider(app.repo.Users(), app.hasher).
		WithLogger(app.GetLogger("identity"))

	app.auther = auth.NewAuthenticator(provider, tokens).
		WithLogger(app.GetLogger("auth")).
		WithActivitySink(app.activitySink())

	return nil
}

func WithAnalysis(_ context.Context, app *App) error {
	brokers := app.config.KafkaBrokersList()
	if len(brokers) == 0 {
		app.logger.Info("image analysis disabled, KAFKA_BROKERS not set")
		return nil
	}

	app.analyzer = analysis.NewService(analysis.Config{
		Brokers:      brokers,
		RequestTopic: app.config.KafkaRequestTopic,
		ResultTopic:  app.config.KafkaResultTopic,
	}, analysis.WithLogger(app.GetLogger("analysis")))

	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	deps := api.Dependencies{
		Manager:       app.repo,
		Authenticator: app.auther,
		Verifier:      app.tokens,
		CreateUser:    auth.NewCreateUserHandler(app.repo.Users(), app.repo, app.hasher),
		Logger:        app.GetLogger("http"),
		ActivitySink:  app.activitySink(),
		Metrics:       app.metrics,
		Debug:         app.config.LogLevel == "debug",
	}
	if app.analyzer != nil {
		deps.Analyzer = app.analyzer
	}

	app.srv = api.NewApp(deps)
	return nil
}

func (a *App) activitySink() auth.ActivitySink {
	sinks := auth.MultiSink{activitymap.NewLogSink(a.GetLogger("audit"))}
	if a.metrics != nil {
		sinks = append(sinks, a.metrics)
	}
	return sinks
}

func (a *App) Seeder() *seed.Seeder {
	return seed.NewSeeder(a.repo, a.hasher, a.config.DataDir,
		seed.WithLogger(a.GetLogger("seed")),
		seed.WithActivitySink(a.activitySink()),
	)
}

func (a *App) Close() {
	if a.analyzer != nil {
		if err := a.analyzer.Close(); err != nil {
			a.logger.Warn("failed to close kafka writer", "error", err)
		}
	}
	if a.bunDB != nil {
		if err := a.bunDB.Close(); err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}
}
