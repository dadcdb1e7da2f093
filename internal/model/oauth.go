package model

import (
	"time"

	"github.com/google/uuid"
)

// OAuthProvider is a named external identity provider such as "yandex".
type OAuthProvider struct {
	ID   uuid.UUID // oauth_providers.id
	Name string    // oauth_providers.name
}

// OAuthAccount links a user to an identity at a provider and keeps the
// latest provider tokens. At most one row exists per (UserID, ProviderID).
type OAuthAccount struct {
	ID             uuid.UUID  // oauth_accounts.id
	UserID         uuid.UUID  // oauth_accounts.user_id
	ProviderID     uuid.UUID  // oauth_accounts.provider_id
	ProviderUserID string     // oauth_accounts.provider_user_id
	AccessToken    string     // oauth_accounts.access_token
	RefreshToken   string     // oauth_accounts.refresh_token
	ExpiresAt      *time.Time // oauth_accounts.expires_at (nullable)
	UpdatedAt      time.Time  // oauth_accounts.updated_at
}
