package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"go.pilab.hu/gamelink/domain"
	"go.pilab.hu/gamelink/services"
)

// bcrypt rejects inputs past 72 bytes instead of truncating them, so the
// limit is enforced up front with a typed error.
const maxPasswordBytes = 72

// Hasher implements services.PasswordHasher on bcrypt.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt cost. Pass 0 for
// bcrypt.DefaultCost; costs outside bcrypt's supported range are clamped.
func NewHasher(cost int) *Hasher {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Cost returns the effective bcrypt cost.
func (h *Hasher) Cost() int { return h.cost }

// Hash derives a bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("%w: password longer than %d bytes", domain.ErrInvalidInput, maxPasswordBytes)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches the stored hash. A mismatch is
// domain.ErrInvalidCredentials; any other error means the stored hash is
// malformed.
func (h *Hasher) Verify(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domain.ErrInvalidCredentials
	}
	return fmt.Errorf("failed to verify password hash: %w", err)
}

var _ services.PasswordHasher = (*Hasher)(nil)
