package repository

import (
	"context"
	"log"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-movielens/auth"
	"github.com/uptrace/bun"
)

// Manager groups every store that shares one database handle.
type Manager struct {
	db      *bun.DB
	users   auth.Users
	movies  *MovieRepository
	links   *LinkRepository
	ratings *RatingRepository
	tags    *TagRepository
}

var _ auth.TransactionManager = (*Manager)(nil)

// NewManager builds all repositories on db
func NewManager(db *bun.DB, opts ...auth.UsersOption) *Manager {
	return &Manager{
		db:      db,
		users:   auth.NewUsersRepository(db, opts...),
		movies:  NewMovieRepository(db),
		links:   NewLinkRepository(db),
		ratings: NewRatingRepository(db),
		tags:    NewTagRepository(db),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database", errors.CategoryInternal)
	}

	if m.users == nil {
		return errors.New("repository users should be initialized", errors.CategoryInternal)
	}

	if m.movies == nil || m.links == nil || m.ratings == nil || m.tags == nil {
		return errors.New("catalog repositories should be initialized", errors.CategoryInternal)
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx runs f in a transaction unless ctx is already done
func (m *Manager) RunInTx(ctx context.Context, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, nil, f)
	}
}

// Truncate removes every catalog row, children first. Identities go too when
// withUsers is set.
func (m *Manager) Truncate(ctx context.Context, withUsers bool) error {
	models := []any{(*Tag)(nil), (*Rating)(nil), (*Link)(nil), (*Movie)(nil)}
	if withUsers {
		models = append(models, (*auth.User)(nil))
	}

	return m.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range models {
			if _, err := tx.NewDelete().Model(model).Where("1 = 1").Exec(ctx); err != nil {
				return errors.Wrap(err, errors.CategoryInternal, "failed to clear tables")
			}
		}
		return nil
	})
}

func (m *Manager) DB() *bun.DB { return m.db }
func (m *Manager) Users() auth.Users { return m.users }
func (m *Manager) Movies() *MovieRepository { return m.movies }
func (m *Manager) Links() *LinkRepository { return m.links }
func (m *Manager) Ratings() *RatingRepository { return m.ratings }
func (m *Manager) Tags() *TagRepository { return m.tags }
