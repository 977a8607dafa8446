package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyKey = errors.New("key must not be empty")

// HashKey bcrypt-hashes an operator key for storage in config.
func HashKey(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func VerifyKey(hash, key string) bool {
	if hash == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
