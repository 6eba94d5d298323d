package model

import "time"

// RefreshToken models a row in the `refresh_tokens` table. The token
// value is opaque random data used only as a lookup key; it carries
// no claims and is never parsed. A record is created alongside every
// access-token issuance, consumed exactly once on rotation, and
// revoked on logout or security events.
//
// Fields:
//  ID              – primary key (uuid string).
//  UserID          – owner of the token.
//  Token           – opaque base64 value handed to the client (unique).
//  JWTID           – jti of the access token issued alongside.
//  DeviceID        – device the pair was issued to (nullable).
//  IsUsed          – consumed by a successful rotation.
//  IsRevoked       – explicitly invalidated.
//  ExpiresAt       – 30 days from issuance.
//  UsedAt          – when the rotation consumed it.
//  RevokedAt       – when it was revoked.
//  RevokedByIP     – caller address recorded on revocation.
//  ReplacedByToken – value of the token that superseded it.
type RefreshToken struct {
	ID              string     // refresh_tokens.id
	UserID          string     // refresh_tokens.user_id
	Token           string     // refresh_tokens.token
	JWTID           string     // refresh_tokens.jwt_id
	DeviceID        *string    // refresh_tokens.device_id (nullable)
	IsUsed          bool       // refresh_tokens.is_used
	IsRevoked       bool       // refresh_tokens.is_revoked
	CreatedAt       time.Time  // refresh_tokens.created_at
	ExpiresAt       time.Time  // refresh_tokens.expires_at
	UsedAt          *time.Time // refresh_tokens.used_at (nullable)
	RevokedAt       *time.Time // refresh_tokens.revoked_at (nullable)
	RevokedByIP     *string    // refresh_tokens.revoked_by_ip (nullable)
	ReplacedByToken *string    // refresh_tokens.replaced_by_token (nullable)
}

// IsExpired reports whether the token's lifetime has elapsed.
func (t *RefreshToken) IsExpired() bool {
	return !time.Now().UTC().Before(t.ExpiresAt)
}

// IsActive reports whether the token can still be exchanged: neither
// revoked, nor consumed by a previous rotation, nor expired.
func (t *RefreshToken) IsActive() bool {
	return !t.IsRevoked && !t.IsUsed && !t.IsExpired()
}
