package domain

import "errors"

var (
	// ErrInvalidInput marks malformed caller arguments. Fatal to the call,
	// never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTokenInvalid covers every final pairing-token rejection: absent,
	// expired, already consumed, or presented by the wrong device. Callers
	// must not retry; the remedy is a fresh pairing.
	ErrTokenInvalid = errors.New("pairing token invalid")

	// ErrPairingNotReady is the expected state while the user has not yet
	// completed the browser login. It is a signal to poll again, not a
	// failure.
	ErrPairingNotReady = errors.New("pairing not ready")

	ErrSessionNotFound = errors.New("device session not found")
	ErrSessionExpired  = errors.New("device session expired")

	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user with this email or username already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrOAuthLinkNotFound = errors.New("oauth link not found")
)
