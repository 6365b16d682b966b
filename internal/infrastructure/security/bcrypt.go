package security

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/notes-service/internal/domain"
)

// BcryptHasher stores one-time passcodes hashed at rest. A 6-digit code has
// little entropy, so the hash mainly keeps a DB dump from being replayable
// within the passcode window.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(passcode string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(passcode), h.cost)
	if err != nil {
		return "", domain.ErrHashFailed(err)
	}
	return string(b), nil
}

// Compare is nil only for the exact original string.
func (h *BcryptHasher) Compare(hash string, passcode string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(passcode))
}
