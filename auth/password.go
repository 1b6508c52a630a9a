package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
)

const DefaultMinPasswordLength = 8

var (
	ErrEmptyPassword    = errors.New("refusing to set empty password")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPassword returns nil if the password matches the hash.
// An empty hash never matches.
func CheckPassword(hash, password string) error {
	if hash == "" {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ValidatePassword checks the minimum length in runes.
func ValidatePassword(password string, minLength int) error {
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	if password == "" {
		return ErrEmptyPassword
	}
	if len([]rune(password)) < minLength {
		return fmt.Errorf("password must contain at least %d characters", minLength)
	}
	return nil
}

// CleanEmail normalizes a login name.
func CleanEmail(email string) string {
	email = norm.NFC.String(email)
	email = strings.TrimSpace(email)
	email = strings.ToLower(email)
	return email
}
