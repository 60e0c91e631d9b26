package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// CreateUserMessage asks for a new identity
type CreateUserMessage struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
	// UseHashid derives the id from the email so repeated bootstraps land on
	// the same record
	UseHashid bool `json:"-"`
}

func (e CreateUserMessage) Type() string { return "user.create" }

// CreateUserHandler checks uniqueness and persists the identity in one
// transaction
type CreateUserHandler struct {
	users   Users
	tx      TransactionManager
	hasher  Hasher
	timeout time.Duration
}

// NewCreateUserHandler wires the handler
func NewCreateUserHandler(users Users, tx TransactionManager, hasher Hasher) *CreateUserHandler {
	return &CreateUserHandler{
		users:   users,
		tx:      tx,
		hasher:  hasher,
		timeout: 10 * time.Second,
	}
}

func (h *CreateUserHandler) Execute(ctx context.Context, msg CreateUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user creation",
		)
	default:
		return h.execute(ctx, msg)
	}
}

func (h *CreateUserHandler) execute(ctx context.Context, msg CreateUserMessage) (*User, error) {
	roles, err := ParseRoles(msg.Roles)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(msg.Username)
	email := strings.TrimSpace(msg.Email)
	if username == "" || email == "" {
		return nil, ErrBlankIdentity
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var user *User
	err = h.tx.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.users.GetByUsernameTx(ctx, tx, username); err == nil {
			return ErrDuplicateUsername
		} else if !goerrors.IsNotFound(err) {
			return err
		}

		if _, err := h.users.GetByEmailTx(ctx, tx, email); err == nil {
			return ErrDuplicateEmail
		} else if !goerrors.IsNotFound(err) {
			return err
		}

		hash, err := h.hasher.HashPassword(msg.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		record := &User{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Roles:        roles,
		}
		if msg.UseHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				record.ID = id
			}
		}

		user, err = h.users.InsertTx(ctx, tx, record)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user creation transaction failed")
	}

	return user, nil
}
