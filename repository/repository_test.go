package repository_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-movielens/auth"
	"github.com/goliatone/go-movielens/database"
	"github.com/goliatone/go-movielens/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupManager(t *testing.T) (*repository.Manager, func()) {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, db, nil))

	m := repository.NewManager(db, auth.WithHasher(auth.NewHasher(4)))
	require.NoError(t, m.Validate())

	return m, func() { _ = db.Close() }
}

func strPtr(s string) *string { return &s }

func seedMovies(t *testing.T, m *repository.Manager) {
	t.Helper()
	ctx := context.Background()
	for _, mv := range []*repository.Movie{
		{MovieID: 1, Title: "Toy Story (1995)", Genres: "Adventure|Animation|Children"},
		{MovieID: 2, Title: "Jumanji (1995)", Genres: "Adventure|Children|Fantasy"},
		{MovieID: 3, Title: "Heat (1995)", Genres: "Action|Crime|Thriller"},
	} {
		_, err := m.Movies().Create(ctx, mv)
		require.NoError(t, err)
	}
}

func TestMovieRepositoryCRUD(t *testing.T) {
	m, cleanup := setupManager(t)
	defer cleanup()
	ctx := context.Background()

	seedMovies(t, m)

	t.Run("list pages by id", func(t *testing.T) {
		movies, err := m.Movies().List(ctx, 1, 10)
		require.NoError(t, err)
		require.Len(t, movies, 2)
		assert.Equal(t, int64(2), movies[0].MovieID)
	})

	t.Run("duplicate id is a conflict", func(t *testing.T) {
		_, err := m.Movies().Create(ctx, &repository.Movie{MovieID: 1, Title: "Again"})
		require.Error(t, err)

		var rich *errors.Error
		require.True(t, errors.As(err, &rich))
		assert.Equal(t, "Movie with ID 1 already exists", rich.Message)
		assert.Equal(t, errors.CodeBadRequest, rich.Code)
	})

	t.Run("search and genre", func(t *testing.T) {
		found, err := m.Movies().SearchByTitle(ctx, "jumanji", 10)
		require.NoError(t, err)
		require.Len(t, found, 1)

		byGenre, err := m.Movies().ByGenre(ctx, "Adventure", 10)
		require.NoError(t, err)
		assert.Len(t, byGenre, 2)

		heat, err := m.Movies().GetByTitle(ctx, "Heat (1995)")
		require.NoError(t, err)
		assert.Equal(t, int64(3), heat.MovieID)
	})

	t.Run("update keeps unset fields", func(t *testing.T) {
		updated, err := m.Movies().Update(ctx, 2, repository.MovieUpdate{Title: strPtr("Jumanji")})
		require.NoError(t, err)
		assert.Equal(t, "Jumanji", updated.Title)
		assert.Equal(t, "Adventure|Children|Fantasy", updated.Genres)

		_, err = m.Movies().Update(ctx, 99, repository.MovieUpdate{Title: strPtr("x")})
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("exists and count", func(t *testing.T) {
		ok, err := m.Movies().Exists(ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = m.Movies().Exists(ctx, 42)
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := m.Movies().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("delete missing is not found", func(t *testing.T) {
		err := m.Movies().Delete(ctx, 404)
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		assert.Contains(t, err.Error(), "Movie not found")
	})
}

func TestLinkRepository(t *testing.T) {
	m, cleanup := setupManager(t)
	defer cleanup()
	ctx := context.Background()
	seedMovies(t, m)

	_, err := m.Links().Create(ctx, &repository.Link{MovieID: 1, IMDBID: "0114709", TMDBID: strPtr("862")})
	require.NoError(t, err)

	t.Run("duplicate link", func(t *testing.T) {
		_, err := m.Links().Create(ctx, &repository.Link{MovieID: 1, IMDBID: "0"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Link for movie 1 already exists")
	})

	t.Run("link to unknown movie", func(t *testing.T) {
		_, err := m.Links().Create(ctx, &repository.Link{MovieID: 77, IMDBID: "0"})
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		assert.Contains(t, err.Error(), "Movie not found")
	})

	t.Run("lookups", func(t *testing.T) {
		link, err := m.Links().GetByIMDB(ctx, "0114709")
		require.NoError(t, err)
		assert.Equal(t, int64(1), link.MovieID)

		link, err = m.Links().GetByTMDB(ctx, "862")
		require.NoError(t, err)
		assert.Equal(t, int64(1), link.MovieID)

		_, err = m.Links().Get(ctx, 2)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("update", func(t *testing.T) {
		link, err := m.Links().Update(ctx, 1, repository.LinkUpdate{IMDBID: strPtr("tt0114709")})
		require.NoError(t, err)
		assert.Equal(t, "tt0114709", link.IMDBID)
		require.NotNil(t, link.TMDBID)
		assert.Equal(t, "862", *link.TMDBID)
	})

	t.Run("movie delete cascades", func(t *testing.T) {
		require.NoError(t, m.Movies().Delete(ctx, 1))
		_, err := m.Links().Get(ctx, 1)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestRatingRepository(t *testing.T) {
	m, cleanup := setupManager(t)
	defer cleanup()
	ctx := context.Background()
	seedMovies(t, m)

	stats, err := m.Ratings().Stats(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, stats.AverageRating)
	assert.Equal(t, 0, stats.RatingCount)

	for _, r := range []*repository.Rating{
		{UserID: 1, MovieID: 1, Rating: 4.0, Timestamp: 964982703},
		{UserID: 2, MovieID: 1, Rating: 5.0, Timestamp: 964982931},
		{UserID: 1, MovieID: 2, Rating: 3.5, Timestamp: 964982224},
	} {
		created, err := m.Ratings().Create(ctx, r)
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
	}

	stats, err = m.Ratings().Stats(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, stats.AverageRating)
	assert.InDelta(t, 4.5, *stats.AverageRating, 0.0001)
	assert.Equal(t, 2, stats.RatingCount)

	byUser, err := m.Ratings().ByUser(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	pair, err := m.Ratings().ByUserAndMovie(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, pair, 1)

	score := 1.0
	updated, err := m.Ratings().Update(ctx, pair[0].ID, repository.RatingUpdate{Rating: &score})
	require.NoError(t, err)
	assert.Equal(t, 1.0, updated.Rating)
	assert.Equal(t, int64(964982224), updated.Timestamp)

	_, err = m.Ratings().Create(ctx, &repository.Rating{UserID: 1, MovieID: 999, Rating: 3})
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, m.Ratings().Delete(ctx, pair[0].ID))
	err = m.Ratings().Delete(ctx, pair[0].ID)
	assert.Contains(t, err.Error(), "Rating not found")
}

func TestTagRepository(t *testing.T) {
	m, cleanup := setupManager(t)
	defer cleanup()
	ctx := context.Background()
	seedMovies(t, m)

	for _, tg := range []*repository.Tag{
		{UserID: 2, MovieID: 1, Tag: "pixar", Timestamp: 1},
		{UserID: 3, MovieID: 1, Tag: "pixar", Timestamp: 2},
		{UserID: 2, MovieID: 2, Tag: "board game", Timestamp: 3},
		{UserID: 4, MovieID: 3, Tag: "heist", Timestamp: 4},
	} {
		_, err := m.Tags().Create(ctx, tg)
		require.NoError(t, err)
	}

	popular, err := m.Tags().Popular(ctx, 2)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "pixar", popular[0].Tag)
	assert.Equal(t, int64(2), popular[0].Count)

	found, err := m.Tags().Search(ctx, "game", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(2), found[0].MovieID)

	named, err := m.Tags().ByName(ctx, "pixar", 10)
	require.NoError(t, err)
	assert.Len(t, named, 2)

	byMovie, err := m.Tags().ByMovie(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, byMovie, 2)

	updated, err := m.Tags().Update(ctx, found[0].ID, repository.TagUpdate{Tag: strPtr("boardgame")})
	require.NoError(t, err)
	assert.Equal(t, "boardgame", updated.Tag)

	require.NoError(t, m.Truncate(ctx, false))
	n, err := m.Tags().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = m.Movies().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestManagerRunInTxHonoursCancelledContext(t *testing.T) {
	m, cleanup := setupManager(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.RunInTx(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
