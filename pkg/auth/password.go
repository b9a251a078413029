package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrGateDenied is returned for a wrong gate ID or password.
var ErrGateDenied = errors.New("access denied")

// HashPassword returns a bcrypt hash suitable for registerGatePasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword validates a password against a bcrypt hash.
func CheckPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Gate is the shared ID/password pair that unlocks the registration page.
type Gate struct {
	ID           string
	PasswordHash string
}

// Enabled reports whether a gate is configured. A disabled gate lets everyone through.
func (g Gate) Enabled() bool {
	return strings.TrimSpace(g.ID) != ""
}

// Check compares the ID exactly and the password against the bcrypt hash.
// The hash is always evaluated so timing does not reveal which half was wrong.
func (g Gate) Check(id, password string) error {
	if !g.Enabled() {
		return nil
	}
	idOK := subtle.ConstantTimeCompare([]byte(id), []byte(g.ID)) == 1
	passOK := CheckPassword(password, g.PasswordHash)
	if !idOK || !passOK {
		return ErrGateDenied
	}
	return nil
}
