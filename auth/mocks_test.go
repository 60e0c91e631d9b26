package auth_test

import (
	"context"
	"sync"

	"github.com/goliatone/go-movielens/auth"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockUserFinder implements auth.UserFinder
type MockUserFinder struct {
	mock.Mock
}

func (m *MockUserFinder) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserFinder) VerifySecret(user *auth.User, candidate string) bool {
	args := m.Called(user, candidate)
	return args.Bool(0)
}

// MockIdentityProvider implements auth.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, username, password string) (auth.Identity, error) {
	args := m.Called(ctx, username, password)
	if id := args.Get(0); id != nil {
		return id.(auth.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTokenIssuer implements auth.TokenIssuer
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(subject string, roles auth.Roles) (string, error) {
	args := m.Called(subject, roles)
	return args.String(0), args.Error(1)
}

// MockVerifier implements auth.TokenVerifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(rawHeader string) (*auth.Claims, error) {
	args := m.Called(rawHeader)
	if c := args.Get(0); c != nil {
		return c.(*auth.Claims), args.Error(1)
	}
	return nil, args.Error(1)
}

type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]auth.ActivityEvent{}, s.events...)
}

type txManager struct {
	db *bun.DB
}

func (t txManager) RunInTx(ctx context.Context, f func(ctx context.Context, tx bun.Tx) error) error {
	return t.db.RunInTx(ctx, nil, f)
}
