package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// BearerPrefix is the literal prefix every Authorization header must carry
const BearerPrefix = "Bearer "

// DefaultTokenTTL is the validity window of a session token
const DefaultTokenTTL = time.Hour

// TokenConfig is the immutable configuration shared by issuer and verifier
type TokenConfig struct {
	SigningKey []byte
	TTL        time.Duration
	Issuer     string
	Clock      Clock
	Logger     Logger
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	now        Clock
	logger     Logger
}

var _ TokenService = (*TokenServiceImpl)(nil)

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg TokenConfig) (*TokenServiceImpl, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("token signing key is required", errors.CategoryBadInput)
	}

	if cfg.TTL < 0 {
		return nil, errors.New("token TTL must be non-negative", errors.CategoryBadInput)
	}

	if cfg.TTL == 0 {
		cfg.TTL = DefaultTokenTTL
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.Logger == nil {
		cfg.Logger = defLogger{}
	}

	key := make([]byte, len(cfg.SigningKey))
	copy(key, cfg.SigningKey)

	return &TokenServiceImpl{
		signingKey: key,
		ttl:        cfg.TTL,
		issuer:     cfg.Issuer,
		now:        cfg.Clock,
		logger:     cfg.Logger,
	}, nil
}

// TTL returns the validity window applied to issued tokens
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Issue signs a token for subject carrying a snapshot of roles
func (ts *TokenServiceImpl) Issue(subject string, roles Roles) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is required", errors.CategoryBadInput)
	}

	now := ts.now().Truncate(time.Second)
	claims := newTokenClaims(subject, roles, ts.issuer, now, ts.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify validates the raw Authorization header value and returns the
// decoded claims
func (ts *TokenServiceImpl) Verify(rawHeader string) (*Claims, error) {
	if rawHeader == "" {
		return nil, ErrMissingAuthorization
	}

	if !strings.HasPrefix(rawHeader, BearerPrefix) {
		return nil, ErrMalformedHeader
	}

	return ts.Validate(strings.TrimPrefix(rawHeader, BearerPrefix))
}

// Validate parses and validates a bare token string
func (ts *TokenServiceImpl) Validate(tokenString string) (*Claims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Warn("token verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		clone := ErrInvalidToken.Clone()
		clone.Source = err
		return nil, clone
	}

	wire, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token verify could not decode claims")
		return nil, ErrInvalidToken
	}

	claims, err := wire.decode()
	if err != nil {
		ts.logger.Warn("token carried unknown role", "error", err)
		clone := ErrInvalidToken.Clone()
		clone.Source = err
		return nil, clone
	}

	return claims, nil
}
