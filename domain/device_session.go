package domain

import "time"

// DeviceSession is the long-lived credential handed to the device once a
// pairing handshake completes. Created exactly once per consumed pairing
// token, never mutated, expires naturally.
type DeviceSession struct {
	SessionToken string    `bson:"_id" json:"session_token"`
	UserID       string    `bson:"user_id" json:"user_id"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *DeviceSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
