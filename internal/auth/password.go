package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrBadPassword is returned by Check for a wrong password.
var ErrBadPassword = errors.New("invalid password")

// Password checks the admin password against either a bcrypt hash or a
// plain value from configuration. The hash wins when both are set.
type Password struct {
	hash  []byte
	plain []byte
}

// NewPassword builds a checker. It fails when neither value is set or when
// hash is not a bcrypt hash.
func NewPassword(plain, hash string) (*Password, error) {
	hash = strings.TrimSpace(hash)
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("admin password hash: %w", err)
		}
		return &Password{hash: []byte(hash)}, nil
	}
	if plain == "" {
		return nil, errors.New("admin password is not configured")
	}
	return &Password{plain: []byte(plain)}, nil
}

// Check returns nil when attempt matches.
func (p *Password) Check(attempt string) error {
	if attempt == "" {
		return ErrBadPassword
	}
	if p.hash != nil {
		if err := bcrypt.CompareHashAndPassword(p.hash, []byte(attempt)); err != nil {
			return ErrBadPassword
		}
		return nil
	}
	if subtle.ConstantTimeCompare(p.plain, []byte(attempt)) != 1 {
		return ErrBadPassword
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for AUTH_ADMIN_PASSWORD_HASH.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}
