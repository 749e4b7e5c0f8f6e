package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password using bcrypt with a fresh random
// salt. The returned string embeds algorithm, cost and salt, so verification
// is self-describing and future cost increases do not invalidate old hashes.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("auth: password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches the stored hash.
// Malformed hash strings and mismatched passwords both come back false; the
// digest comparison is constant-time.
func VerifyPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
