package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodicts/prodicts-backend/internal/model"
)

func testUser() *model.User {
	return &model.User{
		ID:                      "u-1",
		FirstName:               "Ada",
		LastName:                "Lovelace",
		Email:                   "ada@example.com",
		CurrentSubscriptionPlan: "Pro",
		Providers: []model.UserProvider{
			{ProviderName: "google", ProviderID: "g-123"},
		},
	}
}

func TestIssueUserTokenRoundTrip(t *testing.T) {
	iss := NewIssuer("test-secret", "ProdictAPI", "ProdictClient", 60)

	at, err := iss.IssueUserToken(testUser(), "")
	require.NoError(t, err)
	require.NotEmpty(t, at.Token)
	require.NotEmpty(t, at.JWTID)

	assert.True(t, iss.Validate(at.Token))
	assert.Equal(t, "u-1", iss.UserID(at.Token))
	assert.Equal(t, at.JWTID, iss.JWTID(at.Token))
	assert.False(t, iss.IsAnonymous(at.Token))
	assert.WithinDuration(t, time.Now().Add(60*time.Minute), at.ExpiresAt, 5*time.Second)
	assert.WithinDuration(t, at.ExpiresAt, iss.ExpiresAt(at.Token), time.Second)
}

func TestValidateRejectsAfterExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	iss := NewIssuer("test-secret", "ProdictAPI", "ProdictClient", 60).WithClock(func() time.Time { return clock() })

	at, err := iss.IssueUserToken(testUser(), "")
	require.NoError(t, err)
	require.True(t, iss.Validate(at.Token))

	// Step the clock just past expiry; zero skew means immediately invalid.
	clock = func() time.Time { return now.Add(60*time.Minute + time.Second) }
	assert.False(t, iss.Validate(at.Token))
}

func TestValidateRejectsWrongIssuerAudienceSecret(t *testing.T) {
	iss := NewIssuer("test-secret", "ProdictAPI", "ProdictClient", 60)
	at, err := iss.IssueUserToken(testUser(), "")
	require.NoError(t, err)

	otherSecret := NewIssuer("other-secret", "ProdictAPI", "ProdictClient", 60)
	assert.False(t, otherSecret.Validate(at.Token))

	otherIssuer := NewIssuer("test-secret", "SomeoneElse", "ProdictClient", 60)
	assert.False(t, otherIssuer.Validate(at.Token))

	otherAudience := NewIssuer("test-secret", "ProdictAPI", "SomeoneElse", 60)
	assert.False(t, otherAudience.Validate(at.Token))
}

func TestIssueUserTokenReusesSuppliedJWTID(t *testing.T) {
	iss := NewIssuer("test-secret", "ProdictAPI", "ProdictClient", 60)
	at, err := iss.IssueUserToken(testUser(), "fixed-jti")
	require.NoError(t, err)
	assert.Equal(t, "fixed-jti", at.JWTID)
	assert.Equal(t, "fixed-jti", iss.JWTID(at.Token))
}

func TestIssueAnonymousToken(t *testing.T) {
	iss := NewIssuer("test-secret", "ProdictAPI", "ProdictClient", 60)

	at, err := iss.IssueAnonymousToken("device-42")
	require.NoError(t, err)

	assert.True(t, iss.Validate(at.Token))
	assert.True(t, iss.IsAnonymous(at.Token))
	assert.Equal(t, "device-42", iss.DeviceID(at.Token))
	assert.Empty(t, iss.UserID(at.Token))
	// Anonymous tokens live 24x the registered expiry.
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), at.ExpiresAt, 5*time.Second)
}

func TestNewRefreshTokenIsOpaqueAndUnique(t *testing.T) {
	iss := NewIssuer("test-secret", "ProdictAPI", "ProdictClient", 60)

	a, err := iss.NewRefreshToken()
	require.NoError(t, err)
	b, err := iss.NewRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	// 32 random bytes -> 44 base64 chars; not a JWT.
	assert.Len(t, a, 44)
	assert.False(t, iss.Validate(a))
}

func TestExtractorsNeverFail(t *testing.T) {
	iss := NewIssuer("test-secret", "ProdictAPI", "ProdictClient", 60)

	assert.Empty(t, iss.UserID("garbage"))
	assert.Empty(t, iss.DeviceID("garbage"))
	assert.Empty(t, iss.JWTID("garbage"))
	assert.False(t, iss.IsAnonymous("garbage"))
	assert.True(t, iss.ExpiresAt("garbage").IsZero())
}
