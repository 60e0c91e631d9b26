package auth

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
)

// UserFinder is the slice of the credential store login needs
type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	VerifySecret(user *User, candidate string) bool
}

// UserProvider verifies username and password pairs
type UserProvider struct {
	store  UserFinder
	hasher Hasher
	logger Logger

	decoyOnce sync.Once
	decoyHash string
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserFinder, hasher Hasher) *UserProvider {
	return &UserProvider{
		store:  store,
		hasher: hasher,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity will find the user, compare to the password, and return
// identity. Unknown usernames and wrong passwords both yield
// ErrInvalidCredentials.
func (u *UserProvider) VerifyIdentity(ctx context.Context, username, password string) (Identity, error) {
	user, err := u.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.IsNotFound(err) || HasTextCode(err, TextCodeUserNotFound) {
			// spend the same bcrypt work as a real mismatch
			u.hasher.VerifySecret(&User{PasswordHash: u.decoy()}, password)
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if !u.store.VerifySecret(user, password) {
		u.logger.Debug("password mismatch", "username", username)
		return nil, ErrInvalidCredentials
	}

	return IdentityFromUser(user), nil
}

func (u *UserProvider) decoy() string {
	u.decoyOnce.Do(func() {
		h, err := u.hasher.HashPassword("movielens-decoy-secret")
		if err != nil {
			u.logger.Error("failed to build decoy hash", "error", err)
			return
		}
		u.decoyHash = h
	})
	return u.decoyHash
}
