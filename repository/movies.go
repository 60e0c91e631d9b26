package repository

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// MovieRepository implements movie persistence using Bun.
type MovieRepository struct {
	db *bun.DB
}

// NewMovieRepository creates a new repository.
func NewMovieRepository(db *bun.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// List returns a page of movies ordered by id.
func (r *MovieRepository) List(ctx context.Context, offset, limit int) ([]*Movie, error) {
	movies := make([]*Movie, 0)
	err := r.db.NewSelect().
		Model(&movies).
		Order("movie_id ASC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list movies")
	}
	return movies, nil
}

// Get returns a movie by id.
func (r *MovieRepository) Get(ctx context.Context, id int64) (*Movie, error) {
	return r.getTx(ctx, r.db, id)
}

func (r *MovieRepository) getTx(ctx context.Context, tx bun.IDB, id int64) (*Movie, error) {
	movie := &Movie{}
	err := tx.NewSelect().Model(movie).Where("movie_id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound(ErrMovieNotFound, id)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load movie")
	}
	return movie, nil
}

// GetByTitle returns the first movie with an exact title.
func (r *MovieRepository) GetByTitle(ctx context.Context, title string) (*Movie, error) {
	movie := &Movie{}
	err := r.db.NewSelect().Model(movie).Where("title = ?", title).Order("movie_id ASC").Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrMovieNotFound.Clone().WithMetadata(map[string]any{"title": title})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load movie")
	}
	return movie, nil
}

// SearchByTitle matches title substrings.
func (r *MovieRepository) SearchByTitle(ctx context.Context, title string, limit int) ([]*Movie, error) {
	return r.like(ctx, "title", title, limit)
}

// ByGenre matches movies whose pipe separated genres contain genre.
func (r *MovieRepository) ByGenre(ctx context.Context, genre string, limit int) ([]*Movie, error) {
	return r.like(ctx, "genres", genre, limit)
}

func (r *MovieRepository) like(ctx context.Context, column, term string, limit int) ([]*Movie, error) {
	movies := make([]*Movie, 0)
	err := r.db.NewSelect().
		Model(&movies).
		Where("? LIKE ?", bun.Ident(column), "%"+term+"%").
		Order("movie_id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to search movies")
	}
	return movies, nil
}

// Create inserts a movie. The id is caller supplied.
func (r *MovieRepository) Create(ctx context.Context, movie *Movie) (*Movie, error) {
	if _, err := r.db.NewInsert().Model(movie).Exec(ctx); err != nil {
		return nil, mapWriteError(err, func() *errors.Error {
			return alreadyExists("Movie with ID %d already exists", movie.MovieID)
		}, movie.MovieID)
	}
	return movie, nil
}

// Update applies the non nil fields of patch.
func (r *MovieRepository) Update(ctx context.Context, id int64, patch MovieUpdate) (*Movie, error) {
	var movie *Movie
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if movie, err = r.getTx(ctx, tx, id); err != nil {
			return err
		}
		if patch.Title != nil {
			movie.Title = *patch.Title
		}
		if patch.Genres != nil {
			movie.Genres = *patch.Genres
		}
		_, err = tx.NewUpdate().Model(movie).Column("title", "genres").WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movie, nil
}

// Delete removes a movie, cascading to its link, ratings and tags.
func (r *MovieRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*Movie)(nil)).Where("movie_id = ?", id).Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete movie")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(ErrMovieNotFound, id)
	}
	return nil
}

// Count returns the number of movies.
func (r *MovieRepository) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*Movie)(nil)).Count(ctx)
}

// Exists reports whether any movie is stored, or the one with id when given.
func (r *MovieRepository) Exists(ctx context.Context, id ...int64) (bool, error) {
	q := r.db.NewSelect().Model((*Movie)(nil))
	if len(id) > 0 {
		q = q.Where("movie_id = ?", id[0])
	}
	return q.Exists(ctx)
}

// BulkInsertTx writes a batch inside tx.
func (r *MovieRepository) BulkInsertTx(ctx context.Context, tx bun.IDB, movies []*Movie) error {
	if len(movies) == 0 {
		return nil
	}
	if _, err := tx.NewInsert().Model(&movies).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to insert movie batch")
	}
	return nil
}
