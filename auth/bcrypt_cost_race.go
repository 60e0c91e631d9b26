//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// race builds run far slower, keep suites inside their timeouts
	return bcrypt.DefaultCost
}
