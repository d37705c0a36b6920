package auth

import (
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost matches the work factor used by the seeded accounts.
const DefaultHashCost = 10

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// Hasher hashes and verifies user passwords with bcrypt.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher returns a Hasher using the given bcrypt cost. A zero cost selects
// DefaultHashCost.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultHashCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost %d outside [%d,%d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns a salted one-way hash of plaintext. Every call uses a fresh salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if err := validatePlaintext(plaintext); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches storedHash. A mismatch is (false, nil);
// an error is only returned when storedHash itself is unusable.
func (h *Hasher) Verify(plaintext, storedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}

// Burn spends the same work as a real verification against a throwaway hash.
// Login uses it for unknown emails so response time does not reveal which
// accounts exist.
func (h *Hasher) Burn(plaintext string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("shiftdesk-timing-equaliser"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
}

func validatePlaintext(plaintext string) error {
	switch {
	case plaintext == "":
		return fmt.Errorf("%w: empty", ErrInvalidPassword)
	case !utf8.ValidString(plaintext):
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidPassword)
	case len(plaintext) > maxPasswordBytes:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidPassword, maxPasswordBytes)
	}
	return nil
}
