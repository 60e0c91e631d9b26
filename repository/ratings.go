package repository

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

const (
	MinRating = 0.5
	MaxRating = 5.0
)

// RatingRepository stores user ratings.
type RatingRepository struct {
	db *bun.DB
}

// NewRatingRepository creates a new repository.
func NewRatingRepository(db *bun.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

func (r *RatingRepository) List(ctx context.Context, offset, limit int) ([]*Rating, error) {
	return r.list(ctx, nil, offset, limit)
}

// ByUser returns the ratings a user gave.
func (r *RatingRepository) ByUser(ctx context.Context, userID int64, limit int) ([]*Rating, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID)
	}, 0, limit)
}

// ByMovie returns the ratings of a movie.
func (r *RatingRepository) ByMovie(ctx context.Context, movieID int64, limit int) ([]*Rating, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("movie_id = ?", movieID)
	}, 0, limit)
}

// ByUserAndMovie returns the rating rows for one user and movie.
func (r *RatingRepository) ByUserAndMovie(ctx context.Context, userID, movieID int64) ([]*Rating, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID).Where("movie_id = ?", movieID)
	}, 0, 0)
}

func (r *RatingRepository) list(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery, offset, limit int) ([]*Rating, error) {
	ratings := make([]*Rating, 0)
	q := r.db.NewSelect().Model(&ratings).Order("id ASC")
	if filter != nil {
		q = filter(q)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list ratings")
	}
	return ratings, nil
}

func (r *RatingRepository) Get(ctx context.Context, id int64) (*Rating, error) {
	return r.getTx(ctx, r.db, id)
}

func (r *RatingRepository) getTx(ctx context.Context, tx bun.IDB, id int64) (*Rating, error) {
	rating := &Rating{}
	err := tx.NewSelect().Model(rating).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound(ErrRatingNotFound, id)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load rating")
	}
	return rating, nil
}

// AverageForMovie returns nil when the movie has no ratings.
func (r *RatingRepository) AverageForMovie(ctx context.Context, movieID int64) (*float64, error) {
	var avg sql.NullFloat64
	err := r.db.NewSelect().
		Model((*Rating)(nil)).
		ColumnExpr("AVG(rating)").
		Where("movie_id = ?", movieID).
		Scan(ctx, &avg)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to average ratings")
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

func (r *RatingRepository) CountForMovie(ctx context.Context, movieID int64) (int, error) {
	return r.db.NewSelect().Model((*Rating)(nil)).Where("movie_id = ?", movieID).Count(ctx)
}

// Stats aggregates the ratings of a movie.
func (r *RatingRepository) Stats(ctx context.Context, movieID int64) (*MovieStats, error) {
	avg, err := r.AverageForMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}
	count, err := r.CountForMovie(ctx, movieID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to count ratings")
	}
	return &MovieStats{MovieID: movieID, AverageRating: avg, RatingCount: count}, nil
}

// Create inserts a rating. Duplicates per user and movie are allowed.
func (r *RatingRepository) Create(ctx context.Context, rating *Rating) (*Rating, error) {
	rating.ID = 0
	if _, err := r.db.NewInsert().Model(rating).Returning("*").Exec(ctx); err != nil {
		return nil, mapWriteError(err, nil, rating.MovieID)
	}
	return rating, nil
}

func (r *RatingRepository) Update(ctx context.Context, id int64, patch RatingUpdate) (*Rating, error) {
	var rating *Rating
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if rating, err = r.getTx(ctx, tx, id); err != nil {
			return err
		}
		if patch.Rating != nil {
			rating.Rating = *patch.Rating
		}
		if patch.Timestamp != nil {
			rating.Timestamp = *patch.Timestamp
		}
		_, err = tx.NewUpdate().Model(rating).Column("rating", "timestamp").WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rating, nil
}

func (r *RatingRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*Rating)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete rating")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(ErrRatingNotFound, id)
	}
	return nil
}

func (r *RatingRepository) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*Rating)(nil)).Count(ctx)
}

// BulkInsertTx writes a batch inside tx.
func (r *RatingRepository) BulkInsertTx(ctx context.Context, tx bun.IDB, ratings []*Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	if _, err := tx.NewInsert().Model(&ratings).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to insert rating batch")
	}
	return nil
}
