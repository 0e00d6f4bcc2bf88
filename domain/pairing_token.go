package domain

import "time"

// PairingToken correlates a device that cannot render a login UI with a
// browser-side authentication that happens later. The token travels over a
// low-trust channel (URL or QR code), hence the short expiry.
type PairingToken struct {
	Token        string    `bson:"_id" json:"token"`
	DeviceID     string    `bson:"device_id" json:"device_id"`
	LinkedUserID string    `bson:"linked_user_id,omitempty" json:"linked_user_id,omitempty"`
	Consumed     bool      `bson:"consumed" json:"consumed"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// Usable reports whether the token can still be linked or consumed.
func (t *PairingToken) Usable(now time.Time) bool {
	return !t.Consumed && now.Before(t.ExpiresAt)
}

// Linked reports whether a browser login has attached a user to the token.
func (t *PairingToken) Linked() bool {
	return t.LinkedUserID != ""
}
