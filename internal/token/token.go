// Package token issues and introspects the signed bearer tokens used
// by both identity kinds: registered users and anonymous devices. It
// never touches storage; refresh tokens minted here are opaque lookup
// keys for the session store, not parseable tokens.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prodicts/prodicts-backend/internal/model"
)

// UserTypeAnonymous marks tokens issued to device-scoped sessions.
const UserTypeAnonymous = "anonymous"

// Claims is the fixed claim structure embedded in every access token.
// Keeping issuance and extraction on one typed record avoids the
// drift a free-form claim bag invites.
type Claims struct {
	jwt.RegisteredClaims
	Email        string            `json:"email,omitempty"`
	Name         string            `json:"name,omitempty"`
	Subscription string            `json:"subscription,omitempty"`
	DeviceID     string            `json:"device_id,omitempty"`
	UserType     string            `json:"user_type,omitempty"`
	Role         string            `json:"role,omitempty"`
	Providers    map[string]string `json:"providers,omitempty"` // provider name -> provider id
}

// AccessToken pairs a signed JWT with the metadata callers persist
// alongside it: the jti linking it to its refresh token, and expiry.
type AccessToken struct {
	Token     string
	JWTID     string
	ExpiresAt time.Time
}

// Issuer creates and validates HS256 tokens. The zero value is not
// usable; construct with NewIssuer.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	expiry   time.Duration
	now      func() time.Time
}

// NewIssuer builds an Issuer. expiryMinutes applies to registered
// user tokens; anonymous tokens live 24x as long.
func NewIssuer(secret, issuer, audience string, expiryMinutes int) *Issuer {
	return &Issuer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		expiry:   time.Duration(expiryMinutes) * time.Minute,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Tests use it to step across
// expiry boundaries without sleeping.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// IssueUserToken signs an access token for a registered user. When
// jwtID is empty a fresh id is generated; rotation passes the
// original jti through so the refresh-token linkage survives.
func (i *Issuer) IssueUserToken(u *model.User, jwtID string) (AccessToken, error) {
	if jwtID == "" {
		jwtID = uuid.NewString()
	}
	now := i.now().UTC()
	exp := now.Add(i.expiry)

	providers := make(map[string]string, len(u.Providers))
	for _, p := range u.Providers {
		providers[p.ProviderName] = p.ProviderID
	}

	role := u.Role
	if role == "" {
		role = "User"
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jwtID,
			Subject:   u.ID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:        u.Email,
		Name:         u.DisplayName(),
		Subscription: u.CurrentSubscriptionPlan,
		Role:         role,
		Providers:    providers,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, JWTID: jwtID, ExpiresAt: exp}, nil
}

// IssueAnonymousToken signs a device-scoped token. Anonymous sessions
// carry no refresh token, so the lifetime is 24x the registered one.
func (i *Issuer) IssueAnonymousToken(deviceID string) (AccessToken, error) {
	now := i.now().UTC()
	exp := now.Add(24 * i.expiry)
	jwtID := uuid.NewString()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jwtID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		DeviceID: deviceID,
		UserType: UserTypeAnonymous,
		Role:     "Anonymous",
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, JWTID: jwtID, ExpiresAt: exp}, nil
}

// NewRefreshToken returns 32 bytes of cryptographically secure
// randomness, base64 encoded. It is a session-store lookup key and is
// never decoded on the way back in.
func (i *Issuer) NewRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Validate checks signature, issuer, audience and expiry with zero
// clock-skew tolerance. A token is either valid or it is not.
func (i *Issuer) Validate(tokenString string) bool {
	_, err := i.parse(tokenString)
	return err == nil
}

// ParseClaims validates the token and returns its claims. The auth
// middleware uses this to resolve the request identity in one pass.
func (i *Issuer) ParseClaims(tokenString string) (*Claims, error) {
	return i.parse(tokenString)
}

func (i *Issuer) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// readUnverified decodes claims without checking the signature. The
// extractors below are best-effort readers for logging and identity
// resolution; authorization always goes through Validate first.
func (i *Issuer) readUnverified(tokenString string) *Claims {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil
	}
	return claims
}

// UserID returns the subject claim, or "" on any parse failure.
func (i *Issuer) UserID(tokenString string) string {
	if c := i.readUnverified(tokenString); c != nil {
		return c.Subject
	}
	return ""
}

// DeviceID returns the device id claim, or "" on any parse failure.
func (i *Issuer) DeviceID(tokenString string) string {
	if c := i.readUnverified(tokenString); c != nil {
		return c.DeviceID
	}
	return ""
}

// JWTID returns the jti claim, or "" on any parse failure.
func (i *Issuer) JWTID(tokenString string) string {
	if c := i.readUnverified(tokenString); c != nil {
		return c.ID
	}
	return ""
}

// IsAnonymous reports whether the token carries the anonymous marker.
// Parse failures read as false.
func (i *Issuer) IsAnonymous(tokenString string) bool {
	c := i.readUnverified(tokenString)
	return c != nil && c.UserType == UserTypeAnonymous
}

// ExpiresAt returns the token's expiry, or the zero time on any parse
// failure.
func (i *Issuer) ExpiresAt(tokenString string) time.Time {
	if c := i.readUnverified(tokenString); c != nil && c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}
