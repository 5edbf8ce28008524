package chirp

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords with an injected bcrypt cost.
// The salt is generated per call and embedded in the stored value.
type Hasher struct {
	cost int
}

var _ PasswordAuthenticator = Hasher{}

// NewHasher returns a Hasher with the given cost. Costs outside the
// bcrypt range fall back to the package default.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = passwordHashCost()
	}
	return Hasher{cost: cost}
}

// HashPassword will generate a password hash
func (h Hasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "password hashing failed")
	}
	return string(b), nil
}

// ComparePasswordAndHash will validate the given cleartext password
// matches the hashed password. Any mismatch, including a malformed
// stored hash, is reported as invalid credentials rather than an
// internal failure so control flow leaks nothing about the cause.
func (h Hasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

// HashPassword will generate a password hash using the default cost
func HashPassword(password string) (string, error) {
	return NewHasher(passwordHashCost()).HashPassword(password)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		if errors.Is(err, bcrypt.ErrHashTooShort) {
			return ErrMismatchedHashAndPassword
		}
		var hashErr bcrypt.InvalidHashPrefixError
		if errors.As(err, &hashErr) {
			return ErrMismatchedHashAndPassword
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password verification failed")
	}
	return nil
}
