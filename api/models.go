package api

import "time"

// Handshake statuses surfaced to the device client.
const (
	StatusPending = "pending"
	StatusReady   = "ready"
)

// Error codes used across the HTTP surface.
const (
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeInvalidToken       = "invalid_token"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeUserExists         = "user_exists"
	ErrCodeServerError        = "server_error"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// InitPairingRequest starts a handshake for a device.
type InitPairingRequest struct {
	DeviceID string `json:"device_id"`
}

// InitPairingResponse hands the device its pairing token and the browser URL
// to show the user.
type InitPairingResponse struct {
	Token     string    `json:"token"`
	AuthURL   string    `json:"auth_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FinalizeRequest is one device poll.
type FinalizeRequest struct {
	Token    string `json:"token"`
	DeviceID string `json:"device_id"`
}

// FinalizeResponse reports the handshake state. The session fields are set
// only when Status is StatusReady.
type FinalizeResponse struct {
	Status       string     `json:"status"`
	SessionToken string     `json:"session_token,omitempty"`
	UserID       string     `json:"user_id,omitempty"`
	Username     string     `json:"username,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// RegisterRequest creates an account from the browser. WebToken is the
// optional pairing token carried in the login URL.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	WebToken string `json:"web_token,omitempty"`
}

// LoginRequest authenticates an existing account from the browser.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	WebToken string `json:"web_token,omitempty"`
}

// AuthResponse is returned to the browser after register, login or OAuth
// completion. Linked reports whether a pairing token was attached.
type AuthResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Linked   bool   `json:"linked"`
}

// SessionValidateResponse answers a game-server session check.
type SessionValidateResponse struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
