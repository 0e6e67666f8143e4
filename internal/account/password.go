// internal/account/password.go
package account

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// HashPassword generates a salted Argon2id hash of the password.
func HashPassword(password string) (hash string, salt string, err error) {
	rawSalt := make([]byte, 16)
	if _, err := rand.Read(rawSalt); err != nil {
		return "", "", err
	}

	rawHash := argon2.IDKey([]byte(password), rawSalt, 1, 64*1024, 4, 32)

	return base64.StdEncoding.EncodeToString(rawHash),
		base64.StdEncoding.EncodeToString(rawSalt),
		nil
}

// VerifyPassword compares a password with a salted hash.
func VerifyPassword(password, salt, hash string) (bool, error) {
	decodedSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}

	decodedHash, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return false, fmt.Errorf("failed to decode hash: %w", err)
	}

	comparisonHash := argon2.IDKey([]byte(password), decodedSalt, 1, 64*1024, 4, 32)

	return subtle.ConstantTimeCompare(decodedHash, comparisonHash) == 1, nil
}
