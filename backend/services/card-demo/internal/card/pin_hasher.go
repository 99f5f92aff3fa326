package card

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PINHasher defines PIN hashing contract.
type PINHasher interface {
	Hash(pin string) (string, error)
	Compare(hash, pin string) error
}

// BcryptHasher implements PINHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt-backed hasher. Zero cost selects bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash converts a plain PIN into a hash.
func (h *BcryptHasher) Hash(pin string) (string, error) {
	if pin == "" {
		return "", errors.New("card: empty pin")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare checks a PIN against the stored hash.
func (h *BcryptHasher) Compare(hash, pin string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
}
