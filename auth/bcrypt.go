package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxSecretBytes is the longest secret bcrypt accepts
const MaxSecretBytes = 72

// Hasher hashes and compares secrets with bcrypt
type Hasher struct {
	cost int
}

var _ PasswordAuthenticator = Hasher{}

// NewHasher returns a Hasher. Out of range costs are clamped to what bcrypt
// accepts, zero picks the build default.
func NewHasher(cost int) Hasher {
	switch {
	case cost == 0:
		cost = passwordHashCost()
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return Hasher{cost: cost}
}

// Cost returns the work factor in use
func (h Hasher) Cost() int {
	return h.cost
}

// HashPassword will generate a password hash. bcrypt draws a fresh salt on
// every call so equal secrets never share a hash.
func (h Hasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}
	if len(password) > MaxSecretBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	return string(hash), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (h Hasher) ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// VerifySecret reports whether candidate matches the stored hash
func (h Hasher) VerifySecret(user *User, candidate string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return h.ComparePasswordAndHash(candidate, user.PasswordHash) == nil
}
