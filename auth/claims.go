package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded content of a verified session token
type Claims struct {
	Subject   string    `json:"sub"`
	Roles     Roles     `json:"roles"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// HasRole reports whether the token was issued with role
func (c *Claims) HasRole(role Role) bool {
	if c == nil {
		return false
	}
	return c.Roles.Has(role)
}

// Expired reports whether exp is not after now
func (c *Claims) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// tokenClaims is the wire form signed into the token
type tokenClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

func newTokenClaims(subject string, roles Roles, issuer string, issuedAt time.Time, ttl time.Duration) *tokenClaims {
	return &tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Roles: roles.Strings(),
	}
}

func (t *tokenClaims) decode() (*Claims, error) {
	roles, err := ParseRoles(t.Roles)
	if err != nil {
		return nil, err
	}

	claims := &Claims{
		Subject: t.RegisteredClaims.Subject,
		Roles:   roles,
	}
	if t.RegisteredClaims.IssuedAt != nil {
		claims.IssuedAt = t.RegisteredClaims.IssuedAt.Time
	}
	if t.RegisteredClaims.ExpiresAt != nil {
		claims.ExpiresAt = t.RegisteredClaims.ExpiresAt.Time
	}
	return claims, nil
}
