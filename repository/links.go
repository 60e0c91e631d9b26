package repository

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// LinkRepository stores the IMDb and TMDb ids of movies.
type LinkRepository struct {
	db *bun.DB
}

// NewLinkRepository creates a new repository.
func NewLinkRepository(db *bun.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) List(ctx context.Context, offset, limit int) ([]*Link, error) {
	links := make([]*Link, 0)
	err := r.db.NewSelect().
		Model(&links).
		Order("movie_id ASC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list links")
	}
	return links, nil
}

// Get returns the link of a movie.
func (r *LinkRepository) Get(ctx context.Context, movieID int64) (*Link, error) {
	return r.getTx(ctx, r.db, movieID)
}

func (r *LinkRepository) getTx(ctx context.Context, tx bun.IDB, movieID int64) (*Link, error) {
	return r.first(ctx, tx, "movie_id", movieID, movieID)
}

// GetByIMDB looks a link up by its IMDb id.
func (r *LinkRepository) GetByIMDB(ctx context.Context, imdbID string) (*Link, error) {
	return r.first(ctx, r.db, "imdb_id", imdbID, 0)
}

// GetByTMDB looks a link up by its TMDb id.
func (r *LinkRepository) GetByTMDB(ctx context.Context, tmdbID string) (*Link, error) {
	return r.first(ctx, r.db, "tmdb_id", tmdbID, 0)
}

func (r *LinkRepository) first(ctx context.Context, tx bun.IDB, column string, value any, id int64) (*Link, error) {
	link := &Link{}
	err := tx.NewSelect().
		Model(link).
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		Order("movie_id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrLinkNotFound.Clone().WithMetadata(map[string]any{column: value, "id": id})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load link")
	}
	return link, nil
}

// Create inserts a link. The movie must exist.
func (r *LinkRepository) Create(ctx context.Context, link *Link) (*Link, error) {
	if _, err := r.db.NewInsert().Model(link).Exec(ctx); err != nil {
		return nil, mapWriteError(err, func() *errors.Error {
			return alreadyExists("Link for movie %d already exists", link.MovieID)
		}, link.MovieID)
	}
	return link, nil
}

func (r *LinkRepository) Update(ctx context.Context, movieID int64, patch LinkUpdate) (*Link, error) {
	var link *Link
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if link, err = r.getTx(ctx, tx, movieID); err != nil {
			return err
		}
		if patch.IMDBID != nil {
			link.IMDBID = *patch.IMDBID
		}
		if patch.TMDBID != nil {
			link.TMDBID = patch.TMDBID
		}
		_, err = tx.NewUpdate().Model(link).Column("imdb_id", "tmdb_id").WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *LinkRepository) Delete(ctx context.Context, movieID int64) error {
	res, err := r.db.NewDelete().Model((*Link)(nil)).Where("movie_id = ?", movieID).Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete link")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(ErrLinkNotFound, movieID)
	}
	return nil
}

func (r *LinkRepository) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*Link)(nil)).Count(ctx)
}

// BulkInsertTx writes a batch inside tx.
func (r *LinkRepository) BulkInsertTx(ctx context.Context, tx bun.IDB, links []*Link) error {
	if len(links) == 0 {
		return nil
	}
	if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to insert link batch")
	}
	return nil
}
