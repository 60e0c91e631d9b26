package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-movielens/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-signing-key")

func fixedClock(t time.Time) auth.Clock {
	return func() time.Time { return t }
}

func newTokenService(t *testing.T, clock auth.Clock) *auth.TokenServiceImpl {
	t.Helper()
	ts, err := auth.NewTokenService(auth.TokenConfig{
		SigningKey: testSecret,
		Clock:      clock,
		Logger:     auth.NopLogger{},
	})
	require.NoError(t, err)
	return ts
}

func TestNewTokenService(t *testing.T) {
	t.Run("requires a signing key", func(t *testing.T) {
		_, err := auth.NewTokenService(auth.TokenConfig{})
		assert.Error(t, err)
	})

	t.Run("rejects negative ttl", func(t *testing.T) {
		_, err := auth.NewTokenService(auth.TokenConfig{SigningKey: testSecret, TTL: -time.Second})
		assert.Error(t, err)
	})

	t.Run("defaults ttl to one hour", func(t *testing.T) {
		ts := newTokenService(t, nil)
		assert.Equal(t, time.Hour, ts.TTL())
	})
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ts := newTokenService(t, fixedClock(now))

	token, err := ts.Issue("admin", auth.Roles{auth.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := ts.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, auth.Roles{auth.RoleAdmin}, claims.Roles)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenService_IssueWithoutRoles(t *testing.T) {
	ts := newTokenService(t, nil)

	token, err := ts.Issue("nobody", nil)
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	require.NoError(t, err)
	raw := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, []any{}, raw["roles"])

	claims, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Empty(t, claims.Roles)
}

func TestTokenService_IssueRequiresSubject(t *testing.T) {
	ts := newTokenService(t, nil)
	_, err := ts.Issue("", auth.Roles{auth.RoleUser})
	assert.Error(t, err)
}

func TestTokenService_VerifyFailures(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ts := newTokenService(t, fixedClock(now))

	valid, err := ts.Issue("user", auth.Roles{auth.RoleUser})
	require.NoError(t, err)

	other, err := auth.NewTokenService(auth.TokenConfig{SigningKey: []byte("another-key"), Clock: fixedClock(now)})
	require.NoError(t, err)
	foreign, err := other.Issue("user", nil)
	require.NoError(t, err)

	tampered := strings.Join(append(strings.Split(valid, ".")[:2], strings.Split(foreign, ".")[2]), ".")

	hs384 := jwt.NewWithClaims(jwt.SigningMethodHS384, jwt.MapClaims{
		"sub": "user", "roles": []string{}, "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	})
	wrongAlg, err := hs384.SignedString(testSecret)
	require.NoError(t, err)

	rogue := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user", "roles": []string{"ROLE_ROOT"}, "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	})
	unknownRole, err := rogue.SignedString(testSecret)
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user", "roles": []string{}})
	missingExp, err := noExp.SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "Authorization header missing"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "Invalid authorization header format"},
		{"lowercase bearer", "bearer " + valid, "Invalid authorization header format"},
		{"bearer without space", "Bearer" + valid, "Invalid authorization header format"},
		{"garbage token", "Bearer not-a-token", "Invalid token"},
		{"empty token", "Bearer ", "Invalid token"},
		{"tampered signature", "Bearer " + tampered, "Invalid token"},
		{"foreign key", "Bearer " + foreign, "Invalid token"},
		{"wrong algorithm", "Bearer " + wrongAlg, "Invalid token"},
		{"unknown role", "Bearer " + unknownRole, "Invalid token"},
		{"missing exp", "Bearer " + missingExp, "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ts.Verify(tt.header)
			require.Error(t, err)
			assert.Nil(t, claims)

			var rich *errors.Error
			require.True(t, errors.As(err, &rich))
			assert.Equal(t, tt.message, rich.Message)
			assert.Equal(t, errors.CodeUnauthorized, rich.Code)
		})
	}
}

func TestTokenService_Expiry(t *testing.T) {
	issuedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	token, err := newTokenService(t, fixedClock(issuedAt)).Issue("user", nil)
	require.NoError(t, err)

	t.Run("valid just before exp", func(t *testing.T) {
		ts := newTokenService(t, fixedClock(issuedAt.Add(time.Hour-time.Second)))
		_, err := ts.Verify("Bearer " + token)
		assert.NoError(t, err)
	})

	t.Run("expired after exp", func(t *testing.T) {
		ts := newTokenService(t, fixedClock(issuedAt.Add(time.Hour+time.Second)))
		_, err := ts.Verify("Bearer " + token)
		require.Error(t, err)
		assert.True(t, auth.IsTokenExpiredError(err))
		assert.Equal(t, "Token has expired", err.(*errors.Error).Message)
	})

	t.Run("tampered beats expired", func(t *testing.T) {
		ts := newTokenService(t, fixedClock(issuedAt.Add(2*time.Hour)))
		parts := strings.Split(token, ".")
		parts[2] = strings.Repeat("A", len(parts[2]))
		_, err := ts.Verify("Bearer " + strings.Join(parts, "."))
		require.Error(t, err)
		assert.True(t, auth.IsInvalidTokenError(err))
	})
}

func TestTokenService_Issuer(t *testing.T) {
	withIssuer, err := auth.NewTokenService(auth.TokenConfig{SigningKey: testSecret, Issuer: "movielens"})
	require.NoError(t, err)

	token, err := newTokenService(t, nil).Issue("user", nil)
	require.NoError(t, err)

	_, err = withIssuer.Validate(token)
	assert.True(t, auth.IsInvalidTokenError(err))

	token, err = withIssuer.Issue("user", nil)
	require.NoError(t, err)
	_, err = withIssuer.Validate(token)
	assert.NoError(t, err)
}
