package services

import (
	"context"

	"go.pilab.hu/gamelink/domain"
)

// PasswordHasher defines an interface for hashing and verifying passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) error
}

// SessionCache is an optional fast-path lookup for device session
// validation. Misses are not errors; the caller falls back to the durable
// store.
type SessionCache interface {
	Get(ctx context.Context, sessionToken string) (*domain.DeviceSession, bool)
	Set(ctx context.Context, session *domain.DeviceSession) error
}
