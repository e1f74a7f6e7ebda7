package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrBcryptCost is returned for a work factor bcrypt does not accept.
var ErrBcryptCost = errors.New("bcrypt cost out of range")

// HashPassword returns the value stored in users.password for password,
// hashed at the given work factor.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return "", fmt.Errorf("%w: %d not in [%d, %d]", ErrBcryptCost, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// passwordMatches compares a login attempt with users.password. A stored
// value that is not a bcrypt hash never matches.
func passwordMatches(stored, attempt string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(attempt)) == nil
}
