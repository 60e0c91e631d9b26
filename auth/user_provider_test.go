package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-movielens/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserProviderVerifyIdentity(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewHasher(4)

	t.Run("successful verification", func(t *testing.T) {
		store := new(MockUserFinder)
		provider := auth.NewUserProvider(store, hasher).WithLogger(auth.NopLogger{})

		user := &auth.User{
			ID:       uuid.New(),
			Username: "admin",
			Email:    "admin@example.com",
			Roles:    auth.Roles{auth.RoleAdmin},
		}
		store.On("GetByUsername", ctx, "admin").Return(user, nil).Once()
		store.On("VerifySecret", user, "admin123").Return(true).Once()

		identity, err := provider.VerifyIdentity(ctx, "admin", "admin123")
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, "admin", identity.Username())
		assert.Equal(t, "admin@example.com", identity.Email())
		assert.Equal(t, auth.Roles{auth.RoleAdmin}, identity.Roles())

		store.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		store := new(MockUserFinder)
		provider := auth.NewUserProvider(store, hasher).WithLogger(auth.NopLogger{})

		user := &auth.User{Username: "admin"}
		store.On("GetByUsername", ctx, "admin").Return(user, nil).Once()
		store.On("VerifySecret", user, "nope").Return(false).Once()

		identity, err := provider.VerifyIdentity(ctx, "admin", "nope")
		assert.Nil(t, identity)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		store.AssertExpectations(t)
	})

	t.Run("unknown user looks like wrong password", func(t *testing.T) {
		store := new(MockUserFinder)
		provider := auth.NewUserProvider(store, hasher).WithLogger(auth.NopLogger{})

		store.On("GetByUsername", ctx, "ghost").Return(nil, auth.ErrUserNotFound).Once()

		_, err := provider.VerifyIdentity(ctx, "ghost", "whatever")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		store.AssertNotCalled(t, "VerifySecret", mock.Anything, mock.Anything)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		store := new(MockUserFinder)
		provider := auth.NewUserProvider(store, hasher).WithLogger(auth.NopLogger{})

		store.On("GetByUsername", ctx, "admin").Return(nil, errors.New("connection reset")).Once()

		_, err := provider.VerifyIdentity(ctx, "admin", "admin123")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}
