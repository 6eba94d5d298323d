package model

import "time"

// User represents a registered account as stored in the `users`
// table. Email/password accounts carry a bcrypt hash; accounts
// created purely through an OAuth provider have a nil hash. The
// provider list and subscription fields are denormalized onto the
// user record the same way the mobile clients consume them.
//
// Fields:
//  ID                      – primary key (uuid string).
//  FirstName, LastName     – display names.
//  Email                   – unique among active users.
//  PasswordHash            – bcrypt hash; nil for provider-only accounts.
//  ProfilePictureURL       – optional avatar location.
//  EmailVerified           – true when confirmed (providers imply true).
//  Providers               – linked OAuth identities (JSON column).
//  DeviceIDs               – devices this account was used from (JSON column).
//  AnonymousUserID         – anonymous record this account was upgraded from.
//  SubscriptionProvider    – billing backend name; no business logic here.
//  CurrentSubscriptionPlan – "Free", "Pro", "Pro+".
//  SubscriptionExpiresAt   – plan expiry, if any.
//  IsActive                – soft-delete flag.
type User struct {
	ID                      string         // users.id
	FirstName               string         // users.first_name
	LastName                string         // users.last_name
	Email                   string         // users.email
	PasswordHash            *string        // users.password_hash (nullable)
	ProfilePictureURL       *string        // users.profile_picture_url (nullable)
	EmailVerified           bool           // users.email_verified
	Providers               []UserProvider // users.providers (JSON)
	DeviceIDs               []string       // users.device_ids (JSON)
	AnonymousUserID         *string        // users.anonymous_user_id (nullable)
	Role                    string         // users.role ("User" or "Admin")
	SubscriptionProvider    *string        // users.subscription_provider (nullable)
	ProviderUserID          *string        // users.provider_user_id (nullable)
	CurrentSubscriptionPlan string         // users.current_subscription_plan
	SubscriptionExpiresAt   *time.Time     // users.subscription_expires_at (nullable)
	IsActive                bool           // users.is_active
	CreatedAt               time.Time      // users.created_at
	UpdatedAt               time.Time      // users.updated_at
}

// DisplayName joins the name parts for token claims and responses.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// FindProvider returns the linked provider entry matching the given
// (name, id) pair, or nil when the user has no such link.
func (u *User) FindProvider(name, id string) *UserProvider {
	for i := range u.Providers {
		if u.Providers[i].ProviderName == name && u.Providers[i].ProviderID == id {
			return &u.Providers[i]
		}
	}
	return nil
}

// UserProvider is one linked OAuth identity embedded in the user's
// provider list. At most one entry exists system-wide for a given
// (ProviderName, ProviderID) pair.
type UserProvider struct {
	ProviderName      string     `json:"providerName"`
	ProviderID        string     `json:"providerId"`
	Email             string     `json:"email"`
	DisplayName       *string    `json:"displayName,omitempty"`
	ProfilePictureURL *string    `json:"profilePictureUrl,omitempty"`
	AccessToken       *string    `json:"accessToken,omitempty"`
	RefreshToken      *string    `json:"refreshToken,omitempty"`
	IsActive          bool       `json:"isActive"`
	CreatedAt         time.Time  `json:"createdAt"`
	LastUsedAt        *time.Time `json:"lastUsedAt,omitempty"`
}
