package repository

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// TagRepository stores free form user tags.
type TagRepository struct {
	db *bun.DB
}

// NewTagRepository creates a new repository.
func NewTagRepository(db *bun.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) List(ctx context.Context, offset, limit int) ([]*Tag, error) {
	return r.list(ctx, nil, offset, limit)
}

func (r *TagRepository) ByUser(ctx context.Context, userID int64, limit int) ([]*Tag, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID)
	}, 0, limit)
}

func (r *TagRepository) ByMovie(ctx context.Context, movieID int64, limit int) ([]*Tag, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("movie_id = ?", movieID)
	}, 0, limit)
}

// ByName returns tags with exactly this text.
func (r *TagRepository) ByName(ctx context.Context, name string, limit int) ([]*Tag, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.tag = ?", name)
	}, 0, limit)
}

// Search matches tag substrings.
func (r *TagRepository) Search(ctx context.Context, term string, limit int) ([]*Tag, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.tag LIKE ?", "%"+term+"%")
	}, 0, limit)
}

func (r *TagRepository) list(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery, offset, limit int) ([]*Tag, error) {
	tags := make([]*Tag, 0)
	q := r.db.NewSelect().Model(&tags).Order("id ASC")
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
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list tags")
	}
	return tags, nil
}

// Popular returns the most used tags, most frequent first.
func (r *TagRepository) Popular(ctx context.Context, limit int) ([]TagCount, error) {
	counts := make([]TagCount, 0)
	err := r.db.NewSelect().
		Model((*Tag)(nil)).
		ColumnExpr("?TableAlias.tag AS tag").
		ColumnExpr("COUNT(*) AS count").
		GroupExpr("?TableAlias.tag").
		OrderExpr("count DESC, tag ASC").
		Limit(limit).
		Scan(ctx, &counts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to count tags")
	}
	return counts, nil
}

func (r *TagRepository) Get(ctx context.Context, id int64) (*Tag, error) {
	return r.getTx(ctx, r.db, id)
}

func (r *TagRepository) getTx(ctx context.Context, tx bun.IDB, id int64) (*Tag, error) {
	tag := &Tag{}
	err := tx.NewSelect().Model(tag).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound(ErrTagNotFound, id)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load tag")
	}
	return tag, nil
}

func (r *TagRepository) Create(ctx context.Context, tag *Tag) (*Tag, error) {
	tag.ID = 0
	if _, err := r.db.NewInsert().Model(tag).Returning("*").Exec(ctx); err != nil {
		return nil, mapWriteError(err, nil, tag.MovieID)
	}
	return tag, nil
}

func (r *TagRepository) Update(ctx context.Context, id int64, patch TagUpdate) (*Tag, error) {
	var tag *Tag
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if tag, err = r.getTx(ctx, tx, id); err != nil {
			return err
		}
		if patch.Tag != nil {
			tag.Tag = *patch.Tag
		}
		if patch.Timestamp != nil {
			tag.Timestamp = *patch.Timestamp
		}
		_, err = tx.NewUpdate().Model(tag).Column("tag", "timestamp").WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (r *TagRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*Tag)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete tag")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(ErrTagNotFound, id)
	}
	return nil
}

func (r *TagRepository) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*Tag)(nil)).Count(ctx)
}

// BulkInsertTx writes a batch inside tx.
func (r *TagRepository) BulkInsertTx(ctx context.Context, tx bun.IDB, tags []*Tag) error {
	if len(tags) == 0 {
		return nil
	}
	if _, err := tx.NewInsert().Model(&tags).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to insert tag batch")
	}
	return nil
}
