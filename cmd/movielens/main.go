package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-movielens/config"
	"github.com/goliatone/go-movielens/database"
	"github.com/goliatone/go-movielens/logging"
	"github.com/goliatone/go-movielens/seed"
	"github.com/goliatone/go-print"
)

const usage = `usage: movielens [-env file] <command> [flags]

commands:
  serve                      run the HTTP API
  migrate up|down|status     manage the database schema
  seed [-force] [-users-only] load default users and the MovieLens CSVs
`

func main() {
	envFile := flag.String("env", config.DefaultEnvFile, "path to an optional .env file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewAdapter(logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}))

	if cfg.LogLevel == "debug" {
		fmt.Println(print.MaybePrettyJSON(cfg.Redacted()))
	}

	app := &App{config: cfg, logger: logger}
	defer app.Close()

	ctx := context.Background()
	args := flag.Args()

	switch args[0] {
	case "serve":
		err = serve(ctx, app)
	case "migrate":
		err = migrate(ctx, app, args[1:])
	case "seed":
		err = runSeed(ctx, app, args[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("command failed", "command", args[0], "error", err)
		app.Close()
		os.Exit(1)
	}
}

func serve(ctx context.Context, app *App) error {
	if err := app.Setup(ctx,
		WithDatabase,
		WithMigrations,
		WithRepository,
		WithAuth,
		WithAnalysis,
		WithHTTPServer,
	); err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		app.logger.Info("listening", "addr", app.config.HTTPAddr)
		errc <- app.srv.Listen(app.config.HTTPAddr)
	}()

	select {
	case err := <-errc:
		return err
	case sig := <-WaitExitSignal():
		app.logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return app.srv.ShutdownWithContext(shutdownCtx)
}

func migrate(ctx context.Context, app *App, args []string) error {
	if len(args) == 0 {
		return errors.New("migrate: expected up, down or status", errors.CategoryBadInput)
	}

	if err := app.Setup(ctx, WithDatabase); err != nil {
		return err
	}

	m, err := database.NewMigrator(app.bunDB, app.GetLogger("migrate"))
	if err != nil {
		return err
	}

	switch args[0] {
	case "up":
		return m.Up(ctx)
	case "down":
		return m.Down(ctx)
	case "status":
		statuses, err := m.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%-8d %-8s %s\n", s.Version, state, s.Path)
		}
		return nil
	default:
		return errors.New(fmt.Sprintf("migrate: unknown action %q", args[0]), errors.CategoryBadInput)
	}
}

func runSeed(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	force := fs.Bool("force", false, "drop existing data before seeding")
	usersOnly := fs.Bool("users-only", false, "only create the default users")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := app.Setup(ctx, WithDatabase, WithMigrations, WithRepository); err != nil {
		return err
	}

	report, err := app.Seeder().Run(ctx, seed.Options{Force: *force, UsersOnly: *usersOnly})
	if err != nil {
		return err
	}

	app.logger.Info("seed complete",
		"users", report.Users,
		"movies", report.Movies,
		"links", report.Links,
		"ratings", report.Ratings,
		"tags", report.Tags,
		"skipped", report.Skipped,
	)
	return nil
}

// WaitExitSignal returns a channel that receives the first termination signal
func WaitExitSignal() <-chan os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	return ch
}
