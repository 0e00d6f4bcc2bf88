package domain

import "context"

// PairingTokenRepository is the durable holder of pairing tokens and the sole
// place their state machine transitions happen. LinkUser and Consume must
// each execute as one atomic unit: the usability check and the write may not
// be separable, so that concurrent calls on the same token serialize through
// the store rather than through in-process locks.
type PairingTokenRepository interface {
	// Create persists a freshly minted token. Fails only on storage errors.
	Create(ctx context.Context, token *PairingToken) error

	// FindByToken returns ErrTokenInvalid when the token is absent.
	FindByToken(ctx context.Context, token string) (*PairingToken, error)

	// LinkUser attaches userID to a live, unconsumed token. Re-linking an
	// already linked token overwrites the previous user (last writer wins).
	// Returns ErrTokenInvalid when the token is absent, expired or consumed.
	LinkUser(ctx context.Context, token, userID string) error

	// Consume atomically marks a linked token consumed and returns its final
	// state. Exactly one Consume call can ever succeed for a given token.
	// Returns ErrPairingNotReady while no user is linked, ErrTokenInvalid
	// when the token is absent, expired, consumed, or deviceID does not
	// match the one the token was created for.
	Consume(ctx context.Context, token, deviceID string) (*PairingToken, error)

	// DeleteExpired removes expired tokens. Stores with native TTL support
	// may implement this as a no-op.
	DeleteExpired(ctx context.Context) error
}

// DeviceSessionRepository holds device sessions. Sessions are immutable once
// stored and disappear by natural expiry only.
type DeviceSessionRepository interface {
	Store(ctx context.Context, session *DeviceSession) error

	// GetByToken returns ErrSessionNotFound when absent. Expiry is the
	// caller's check; an expired-but-present session is still returned.
	GetByToken(ctx context.Context, sessionToken string) (*DeviceSession, error)

	DeleteExpired(ctx context.Context) error
}

// UserRepository manages player accounts.
type UserRepository interface {
	// Create returns ErrUserExists on an email or username collision.
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
}

// UserOAuthRepository manages links between local accounts and external
// identity providers.
type UserOAuthRepository interface {
	Create(ctx context.Context, link *UserOAuthLink) error
	GetByProviderKey(ctx context.Context, providerName, providerUserID string) (*UserOAuthLink, error)
}
