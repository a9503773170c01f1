// Package storage provides cryptographic utilities for credential material.
package storage

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor applied to password hashes. Cost 12 keeps
// hashing slow enough to resist offline attack on leaked hashes.
const BcryptCost = 12

// HashPassword creates a bcrypt hash of a password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks if a password matches a bcrypt hash.
func VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
