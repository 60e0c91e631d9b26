// Package seed bootstraps the default identities and loads the MovieLens CSV
// export into the catalog.
package seed

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-movielens/auth"
	"github.com/goliatone/go-movielens/repository"
	"github.com/uptrace/bun"
)

const (
	MoviesFile  = "movies.csv"
	LinksFile   = "links.csv"
	RatingsFile = "ratings.csv"
	TagsFile    = "tags.csv"

	DefaultMovieBatch  = 5000
	DefaultLinkBatch   = 5000
	DefaultRatingBatch = 10000
	DefaultTagBatch    = 10000
)

// DefaultUsers are created when missing
var DefaultUsers = []auth.CreateUserMessage{
	{
		Username:  "admin",
		Email:     "admin@example.com",
		Password:  "admin123",
		Roles:     []string{string(auth.RoleAdmin), string(auth.RoleUser)},
		UseHashid: true,
	},
	{
		Username:  "user",
		Email:     "user@example.com",
		Password:  "user123",
		Roles:     []string{string(auth.RoleUser)},
		UseHashid: true,
	},
}

// Options mirror the seed command flags
type Options struct {
	// Force clears catalog and identities before seeding
	Force bool
	// UsersOnly skips the catalog
	UsersOnly bool
}

// Report counts what a run inserted
type Report struct {
	Users   int `json:"users"`
	Movies  int `json:"movies"`
	Links   int `json:"links"`
	Ratings int `json:"ratings"`
	Tags    int `json:"tags"`
	// Skipped explains why catalog seeding did not run
	Skipped string `json:"skipped,omitempty"`
}

// Seeder loads bootstrap data
type Seeder struct {
	manager    *repository.Manager
	createUser *auth.CreateUserHandler
	dataDir    string
	logger     auth.Logger
	sink       auth.ActivitySink
	batches    batchSizes
}

type batchSizes struct {
	movies, links, ratings, tags int
}

// Option configures a Seeder
type Option func(*Seeder)

func WithLogger(l auth.Logger) Option {
	return func(s *Seeder) { s.logger = l }
}

// WithActivitySink receives a user created event per bootstrap identity
func WithActivitySink(sink auth.ActivitySink) Option {
	return func(s *Seeder) { s.sink = sink }
}

// WithBatchSize overrides every batch size with n
func WithBatchSize(n int) Option {
	return func(s *Seeder) {
		if n > 0 {
			s.batches = batchSizes{movies: n, links: n, ratings: n, tags: n}
		}
	}
}

// NewSeeder reads CSV files from dataDir
func NewSeeder(manager *repository.Manager, hasher auth.Hasher, dataDir string, opts ...Option) *Seeder {
	s := &Seeder{
		manager:    manager,
		createUser: auth.NewCreateUserHandler(manager.Users(), manager, hasher),
		dataDir:    dataDir,
		logger:     auth.NopLogger{},
		batches: batchSizes{
			movies:  DefaultMovieBatch,
			links:   DefaultLinkBatch,
			ratings: DefaultRatingBatch,
			tags:    DefaultTagBatch,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Run performs a full seed pass
func (s *Seeder) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{}

	if opts.Force {
		s.logger.Warn("force mode enabled, clearing existing data")
		if err := s.manager.Truncate(ctx, true); err != nil {
			return nil, err
		}
	}

	created, err := s.SeedUsers(ctx)
	if err != nil {
		return nil, err
	}
	report.Users = created

	if opts.UsersOnly {
		report.Skipped = "users only"
		return report, nil
	}

	if err := s.SeedMovieData(ctx, opts.Force, report); err != nil {
		return nil, err
	}

	return report, nil
}

// SeedUsers creates missing default identities and returns how many it added
func (s *Seeder) SeedUsers(ctx context.Context) (int, error) {
	created := 0
	for _, msg := range DefaultUsers {
		if _, err := s.manager.Users().GetByUsername(ctx, msg.Username); err == nil {
			s.logger.Info("user already exists", "username", msg.Username)
			continue
		} else if !errors.IsNotFound(err) {
			return created, err
		}

		user, err := s.createUser.Execute(ctx, msg)
		if err != nil {
			return created, err
		}
		created++

		s.logger.Info("user created", "username", user.Username, "roles", user.Roles.String())
		if s.sink != nil {
			_ = s.sink.Record(ctx, auth.ActivityEvent{
				EventType: auth.ActivityEventUserCreated,
				Subject:   user.Username,
				Reason:    "ok",
			})
		}
	}
	return created, nil
}

// SeedMovieData loads the four CSV files. It is a no-op when movies exist and
// force is off, or when any file is missing.
func (s *Seeder) SeedMovieData(ctx context.Context, force bool, report *Report) error {
	exists, err := s.manager.Movies().Exists(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to check catalog")
	}
	if exists && !force {
		report.Skipped = "catalog already seeded"
		s.logger.Info("database already has movie data, skipping movie seeding")
		return nil
	}

	paths := map[string]string{}
	for _, name := range []string{MoviesFile, LinksFile, RatingsFile, TagsFile} {
		p := filepath.Join(s.dataDir, name)
		if _, err := os.Stat(p); err != nil {
			report.Skipped = "missing " + name
			s.logger.Warn("csv files not found, skipping movie data seeding", "dir", s.dataDir, "file", name)
			return nil
		}
		paths[name] = p
	}

	steps := []struct {
		name  string
		count *int
		load  func(context.Context, string) (int, error)
	}{
		{MoviesFile, &report.Movies, s.loadMovies},
		{LinksFile, &report.Links, s.loadLinks},
		{RatingsFile, &report.Ratings, s.loadRatings},
		{TagsFile, &report.Tags, s.loadTags},
	}

	for _, step := range steps {
		s.logger.Info("seeding", "file", step.name)
		n, err := step.load(ctx, paths[step.name])
		if err != nil {
			return err
		}
		*step.count = n
	}

	s.logger.Info("movie data seeded",
		"movies", report.Movies,
		"links", report.Links,
		"ratings", report.Ratings,
		"tags", report.Tags,
	)
	return nil
}

func (s *Seeder) loadMovies(ctx context.Context, path string) (int, error) {
	return load(ctx, s.manager, path, s.batches.movies, func(r row) (*repository.Movie, error) {
		id, err := r.integer("movieId")
		if err != nil {
			return nil, err
		}
		return &repository.Movie{MovieID: id, Title: r.get("title"), Genres: r.get("genres")}, nil
	}, s.manager.Movies().BulkInsertTx)
}

func (s *Seeder) loadLinks(ctx context.Context, path string) (int, error) {
	return load(ctx, s.manager, path, s.batches.links, func(r row) (*repository.Link, error) {
		id, err := r.integer("movieId")
		if err != nil {
			return nil, err
		}
		link := &repository.Link{MovieID: id, IMDBID: r.get("imdbId")}
		if tmdb := r.get("tmdbId"); tmdb != "" {
			link.TMDBID = &tmdb
		}
		return link, nil
	}, s.manager.Links().BulkInsertTx)
}

func (s *Seeder) loadRatings(ctx context.Context, path string) (int, error) {
	return load(ctx, s.manager, path, s.batches.ratings, func(r row) (*repository.Rating, error) {
		userID, err := r.integer("userId")
		if err != nil {
			return nil, err
		}
		movieID, err := r.integer("movieId")
		if err != nil {
			return nil, err
		}
		score, err := strconv.ParseFloat(r.get("rating"), 64)
		if err != nil {
			return nil, r.fail("rating", err)
		}
		ts, err := r.integer("timestamp")
		if err != nil {
			return nil, err
		}
		return &repository.Rating{UserID: userID, MovieID: movieID, Rating: score, Timestamp: ts}, nil
	}, s.manager.Ratings().BulkInsertTx)
}

func (s *Seeder) loadTags(ctx context.Context, path string) (int, error) {
	return load(ctx, s.manager, path, s.batches.tags, func(r row) (*repository.Tag, error) {
		userID, err := r.integer("userId")
		if err != nil {
			return nil, err
		}
		movieID, err := r.integer("movieId")
		if err != nil {
			return nil, err
		}
		ts, err := r.integer("timestamp")
		if err != nil {
			return nil, err
		}
		return &repository.Tag{UserID: userID, MovieID: movieID, Tag: r.get("tag"), Timestamp: ts}, nil
	}, s.manager.Tags().BulkInsertTx)
}

// load streams a CSV file with a header line and commits every size rows in
// its own transaction.
func load[T any](
	ctx context.Context,
	txm auth.TransactionManager,
	path string,
	size int,
	parse func(row) (T, error),
	insert func(context.Context, bun.IDB, []T) error,
) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to open "+filepath.Base(path))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryBadInput, "failed to read header of "+filepath.Base(path))
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[h] = i
	}

	flush := func(batch []T) error {
		return txm.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
			return insert(ctx, tx, batch)
		})
	}

	total := 0
	batch := make([]T, 0, size)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, errors.Wrap(err, errors.CategoryBadInput, "failed to read "+filepath.Base(path))
		}

		item, err := parse(row{file: filepath.Base(path), line: line, columns: columns, record: record})
		if err != nil {
			return total, err
		}
		batch = append(batch, item)

		if len(batch) >= size {
			if err := flush(batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = make([]T, 0, size)
		}
	}

	if len(batch) > 0 {
		if err := flush(batch); err != nil {
			return total, err
		}
		total += len(batch)
	}

	return total, nil
}

type row struct {
	file    string
	line    int
	columns map[string]int
	record  []string
}

func (r row) get(column string) string {
	i, ok := r.columns[column]
	if !ok || i >= len(r.record) {
		return ""
	}
	return r.record[i]
}

func (r row) integer(column string) (int64, error) {
	v, err := strconv.ParseInt(r.get(column), 10, 64)
	if err != nil {
		return 0, r.fail(column, err)
	}
	return v, nil
}

func (r row) fail(column string, err error) error {
	return errors.Wrap(err, errors.CategoryBadInput,
		fmt.Sprintf("%s line %d: invalid %s", r.file, r.line, column))
}
