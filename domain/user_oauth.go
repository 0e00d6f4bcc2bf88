package domain

import "time"

// UserOAuthLink ties a local user account to an external identity provider
// account. The (ProviderName, ProviderUserID) pair is unique so one external
// account can never be attached to two local users.
type UserOAuthLink struct {
	ID             string    `bson:"_id,omitempty" json:"id,omitempty"`
	UserID         string    `bson:"user_id" json:"user_id"`
	ProviderName   string    `bson:"provider_name" json:"provider_name"`
	ProviderUserID string    `bson:"provider_user_id" json:"provider_user_id"`
	ProviderEmail  string    `bson:"provider_email,omitempty" json:"provider_email,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}
