package auth

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-movielens/database"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the credential store. It is the single writer of identity records.
type Users interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context) ([]*User, error)
	ListTx(ctx context.Context, tx bun.IDB) ([]*User, error)
	Count(ctx context.Context) (int, error)

	Create(ctx context.Context, username, email, secret string, roles Roles) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, username, email, secret string, roles Roles) (*User, error)
	Insert(ctx context.Context, user *User) (*User, error)
	InsertTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	VerifySecret(user *User, candidate string) bool
	Delete(ctx context.Context, user *User) error
	DeleteTx(ctx context.Context, tx bun.IDB, user *User) error
}

type users struct {
	repository.Repository[*User]
	db     *bun.DB
	hasher Hasher
}

var _ Users = (*users)(nil)

// UsersOption configures the credential store
type UsersOption func(*users)

// WithHasher overrides the bcrypt cost used for new secrets
func WithHasher(h Hasher) UsersOption {
	return func(u *users) {
		u.hasher = h
	}
}

// NewUsersRepository returns the bun backed credential store
func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	base := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	repo := &users{
		Repository: base,
		db:         db,
		hasher:     NewHasher(0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return a.GetByUsernameTx(ctx, a.db, username)
}

func (a *users) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	record, err := a.Repository.GetByIdentifierTx(ctx, tx, username)
	if err != nil {
		return nil, mapUserReadError(err, "username", username)
	}
	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return a.getBy(ctx, tx, "email", email)
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record, err := a.Repository.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapUserReadError(err, "id", id.String())
	}
	return record, nil
}

func (a *users) getBy(ctx context.Context, tx bun.IDB, column string, value any) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, mapUserReadError(err, column, value)
	}

	return record, nil
}

func mapUserReadError(err error, column string, value any) error {
	if stderrors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return ErrUserNotFound.Clone().WithMetadata(map[string]any{
			column: value,
		})
	}
	return errors.Wrap(err, errors.CategoryInternal, "failed to load user")
}

func (a *users) List(ctx context.Context) ([]*User, error) {
	return a.ListTx(ctx, a.db)
}

func (a *users) ListTx(ctx context.Context, tx bun.IDB) ([]*User, error) {
	records := make([]*User, 0)
	if err := tx.NewSelect().Model(&records).OrderExpr("?TableAlias.created_at ASC, ?TableAlias.username ASC").Scan(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}
	return records, nil
}

func (a *users) Count(ctx context.Context) (int, error) {
	n, err := a.db.NewSelect().Model((*User)(nil)).Count(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to count users")
	}
	return n, nil
}

// Create hashes secret and persists a new identity in its own transaction
func (a *users) Create(ctx context.Context, username, email, secret string, roles Roles) (*User, error) {
	var user *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = a.CreateTx(ctx, tx, username, email, secret, roles)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, username, email, secret string, roles Roles) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, ErrBlankIdentity
	}

	hash, err := a.hasher.HashPassword(secret)
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash secret")
	}

	return a.InsertTx(ctx, tx, &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
	})
}

// Insert persists a user whose secret is already hashed
func (a *users) Insert(ctx context.Context, user *User) (*User, error) {
	return a.InsertTx(ctx, a.db, user)
}

func (a *users) InsertTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, errors.New("user is required", errors.CategoryBadInput)
	}
	prepareUserDefaults(user)

	record, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		return nil, mapUserWriteError(err)
	}
	return record, nil
}

func (a *users) VerifySecret(user *User, candidate string) bool {
	return a.hasher.VerifySecret(user, candidate)
}

func (a *users) Delete(ctx context.Context, user *User) error {
	return a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return a.DeleteTx(ctx, tx, user)
	})
}

func (a *users) DeleteTx(ctx context.Context, tx bun.IDB, user *User) error {
	if user == nil {
		return errors.New("user is required", errors.CategoryBadInput)
	}

	res, err := tx.NewDelete().Model((*User)(nil)).Where("id = ?", user.ID).Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete user")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound.Clone().WithMetadata(map[string]any{
			"id": user.ID.String(),
		})
	}
	return nil
}

func mapUserWriteError(err error) error {
	if target, ok := database.UniqueViolation(err); ok {
		switch {
		case strings.Contains(target, "username"):
			return ErrDuplicateUsername
		case strings.Contains(target, "email"):
			return ErrDuplicateEmail
		}
	}
	return errors.Wrap(err, errors.CategoryInternal, "failed to insert user")
}
