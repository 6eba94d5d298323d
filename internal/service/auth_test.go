package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodicts/prodicts-backend/internal/model"
	"github.com/prodicts/prodicts-backend/internal/repository"
	"github.com/prodicts/prodicts-backend/internal/token"
)

type fakeUsers struct {
	byID map[string]*model.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[string]*model.User{}} }

func (f *fakeUsers) Create(ctx context.Context, u *model.User) error {
	if taken, _ := f.EmailExists(ctx, u.Email); taken {
		return repository.ErrEmailExists
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.IsActive = true
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	if u, ok := f.byID[id]; ok && u.IsActive {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.byID {
		if u.Email == email && u.IsActive {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByProvider(ctx context.Context, name, id string) (*model.User, error) {
	for _, u := range f.byID {
		if u.IsActive && u.FindProvider(name, id) != nil {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeUsers) Update(ctx context.Context, u *model.User) error {
	if _, ok := f.byID[u.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

type fakeAnon struct {
	byDevice map[string]*model.AnonymousUser
	touches  int
}

func newFakeAnon() *fakeAnon { return &fakeAnon{byDevice: map[string]*model.AnonymousUser{}} }

func (f *fakeAnon) Create(ctx context.Context, a *model.AnonymousUser) error {
	if _, ok := f.byDevice[a.DeviceID]; ok {
		return repository.ErrConflict
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.IsActive = true
	f.byDevice[a.DeviceID] = a
	return nil
}

func (f *fakeAnon) GetByDeviceID(ctx context.Context, deviceID string) (*model.AnonymousUser, error) {
	if a, ok := f.byDevice[deviceID]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAnon) Update(ctx context.Context, a *model.AnonymousUser) error {
	if _, ok := f.byDevice[a.DeviceID]; !ok {
		return repository.ErrNotFound
	}
	cp := *a
	f.byDevice[a.DeviceID] = &cp
	return nil
}

func (f *fakeAnon) Touch(ctx context.Context, deviceID string) error {
	f.touches++
	return nil
}

func (f *fakeAnon) MarkUpgraded(ctx context.Context, deviceID, userID string) error {
	a, ok := f.byDevice[deviceID]
	if !ok {
		return repository.ErrNotFound
	}
	if a.IsUpgraded {
		return repository.ErrConflict
	}
	a.IsUpgraded = true
	a.UpgradedUserID = &userID
	return nil
}

type fakeSessions struct {
	byToken map[string]*model.RefreshToken
}

func newFakeSessions() *fakeSessions { return &fakeSessions{byToken: map[string]*model.RefreshToken{}} }

func (f *fakeSessions) Issue(ctx context.Context, userID, tokenValue, jwtID string, deviceID *string) (*model.RefreshToken, error) {
	rt := &model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     tokenValue,
		JWTID:     jwtID,
		DeviceID:  deviceID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(30 * 24 * time.Hour),
	}
	f.byToken[tokenValue] = rt
	return rt, nil
}

func (f *fakeSessions) Lookup(ctx context.Context, tokenValue string) (*model.RefreshToken, error) {
	if rt, ok := f.byToken[tokenValue]; ok {
		cp := *rt
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSessions) Rotate(ctx context.Context, old *model.RefreshToken, newTokenValue, newJWTID string) (*model.RefreshToken, error) {
	stored, ok := f.byToken[old.Token]
	if !ok || stored.IsUsed || stored.IsRevoked {
		return nil, repository.ErrConflict
	}
	now := time.Now().UTC()
	stored.IsUsed = true
	stored.UsedAt = &now
	stored.ReplacedByToken = &newTokenValue
	return f.Issue(ctx, old.UserID, newTokenValue, newJWTID, old.DeviceID)
}

func (f *fakeSessions) RevokeOne(ctx context.Context, tokenValue string, ip *string) error {
	if rt, ok := f.byToken[tokenValue]; ok {
		rt.IsRevoked = true
	}
	return nil
}

func (f *fakeSessions) RevokeAllForUser(ctx context.Context, userID string, ip *string) error {
	for _, rt := range f.byToken {
		if rt.UserID == userID {
			rt.IsRevoked = true
		}
	}
	return nil
}

func (f *fakeSessions) RevokeAllForDevice(ctx context.Context, deviceID string, ip *string) error {
	for _, rt := range f.byToken {
		if rt.DeviceID != nil && *rt.DeviceID == deviceID {
			rt.IsRevoked = true
		}
	}
	return nil
}

func (f *fakeSessions) activeCount(userID string) int {
	n := 0
	for _, rt := range f.byToken {
		if rt.UserID == userID && rt.IsActive() {
			n++
		}
	}
	return n
}

func newAuthService() (*AuthService, *fakeUsers, *fakeAnon, *fakeSessions) {
	users := newFakeUsers()
	anon := newFakeAnon()
	sessions := newFakeSessions()
	issuer := token.NewIssuer("test-secret-test-secret-test-secret", "ProdictAPI", "ProdictClient", 60)
	// Low cost keeps the bcrypt calls cheap in tests.
	return NewAuthService(users, anon, sessions, issuer, 4), users, anon, sessions
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _, _, _ := newAuthService()
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{
		FirstName: "Ada", LastName: "Lovelace",
		Email: "Ada@Example.com", Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "ada@example.com", res.User.Email)

	login, err := svc.Login(ctx, "ada@example.com", "secret123", "")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "ada@example.com", "wrong", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: "pw123456"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "DUP@example.com", Password: "pw123456"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, _, sessions := newAuthService()
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Email: "r@example.com", Password: "pw123456"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, res.RefreshToken, nil)
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, rotated.RefreshToken)
	assert.NotEmpty(t, rotated.AccessToken)

	old, err := sessions.Lookup(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.True(t, old.IsUsed)
	require.NotNil(t, old.ReplacedByToken)
	assert.Equal(t, rotated.RefreshToken, *old.ReplacedByToken)
}

func TestRefreshReuseRevokesFamily(t *testing.T) {
	svc, _, _, sessions := newAuthService()
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Email: "theft@example.com", Password: "pw123456"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, res.RefreshToken, nil)
	require.NoError(t, err)

	// Presenting the consumed token again looks like theft.
	_, err = svc.Refresh(ctx, res.RefreshToken, nil)
	assert.ErrorIs(t, err, ErrRefreshReused)
	assert.Zero(t, sessions.activeCount(res.User.ID))

	// The legitimately rotated token died with the family.
	_, err = svc.Refresh(ctx, rotated.RefreshToken, nil)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestAnonymousLoginIsIdempotent(t *testing.T) {
	svc, _, anon, _ := newAuthService()
	ctx := context.Background()

	first, err := svc.AnonymousLogin(ctx, "device-1", "iOS", "1.2.0")
	require.NoError(t, err)
	assert.NotEmpty(t, first.AccessToken)
	assert.Empty(t, first.RefreshToken)
	assert.Equal(t, "device-1", first.DeviceID)

	second, err := svc.AnonymousLogin(ctx, "device-1", "iOS", "1.2.0")
	require.NoError(t, err)
	assert.NotEmpty(t, second.AccessToken)
	assert.Len(t, anon.byDevice, 1)
	assert.Equal(t, 1, anon.touches)
}

func TestAnonymousTokenOutlivesRegistered(t *testing.T) {
	svc, _, _, _ := newAuthService()
	ctx := context.Background()

	anon, err := svc.AnonymousLogin(ctx, "device-2", "Android", "1.0.0")
	require.NoError(t, err)
	reg, err := svc.Register(ctx, RegisterInput{Email: "ttl@example.com", Password: "pw123456"})
	require.NoError(t, err)

	assert.True(t, anon.ExpiresAt.After(reg.ExpiresAt.Add(22*time.Hour)))
}

func TestUpgradeAnonymousIsOneWay(t *testing.T) {
	svc, _, anon, _ := newAuthService()
	ctx := context.Background()

	_, err := svc.AnonymousLogin(ctx, "device-3", "iOS", "1.0.0")
	require.NoError(t, err)

	res, err := svc.UpgradeAnonymous(ctx, "device-3", RegisterInput{
		FirstName: "Up", Email: "up@example.com", Password: "pw123456",
	})
	require.NoError(t, err)
	require.NotNil(t, res.User.AnonymousUserID)
	assert.Equal(t, anon.byDevice["device-3"].ID, *res.User.AnonymousUserID)
	assert.True(t, anon.byDevice["device-3"].IsUpgraded)

	_, err = svc.UpgradeAnonymous(ctx, "device-3", RegisterInput{
		Email: "again@example.com", Password: "pw123456",
	})
	assert.ErrorIs(t, err, ErrAlreadyUpgraded)

	// The upgraded device can no longer sign in anonymously.
	_, err = svc.AnonymousLogin(ctx, "device-3", "iOS", "1.0.0")
	assert.ErrorIs(t, err, ErrDeviceUpgraded)
}

func TestUpgradeRevokesOtherSessionsOnDevice(t *testing.T) {
	svc, _, _, sessions := newAuthService()
	ctx := context.Background()

	// Someone else was signed in on this device before the upgrade.
	other, err := svc.Register(ctx, RegisterInput{
		FirstName: "Old", Email: "old@example.com", Password: "pw123456", DeviceID: "device-7",
	})
	require.NoError(t, err)
	require.Equal(t, 1, sessions.activeCount(other.User.ID))

	_, err = svc.AnonymousLogin(ctx, "device-7", "android", "1.0.0")
	require.NoError(t, err)

	res, err := svc.UpgradeAnonymous(ctx, "device-7", RegisterInput{
		FirstName: "New", Email: "new@example.com", Password: "pw123456",
	})
	require.NoError(t, err)

	// The stranger's device session is dead, the upgraded account's
	// own fresh session is not.
	assert.Equal(t, 0, sessions.activeCount(other.User.ID))
	assert.Equal(t, 1, sessions.activeCount(res.User.ID))
	_, err = svc.Refresh(ctx, other.RefreshToken, nil)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestOAuthThreeWayResolution(t *testing.T) {
	svc, users, _, _ := newAuthService()
	ctx := context.Background()

	// New provider identity, new email: a fresh account.
	created, err := svc.OAuthLogin(ctx, OAuthInput{
		Provider: "google", ProviderID: "g-1",
		Email: "oauth@example.com", DisplayName: "Grace Hopper",
	})
	require.NoError(t, err)
	assert.Equal(t, "Grace", created.User.FirstName)
	assert.Equal(t, "Hopper", created.User.LastName)
	assert.Nil(t, created.User.PasswordHash)
	assert.Len(t, users.byID, 1)

	// Same provider identity again: same account.
	again, err := svc.OAuthLogin(ctx, OAuthInput{
		Provider: "google", ProviderID: "g-1", Email: "oauth@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, again.User.ID)
	assert.Len(t, users.byID, 1)

	// An existing password account with a matching email gets the
	// provider linked instead of a duplicate account.
	reg, err := svc.Register(ctx, RegisterInput{Email: "link@example.com", Password: "pw123456"})
	require.NoError(t, err)
	linked, err := svc.OAuthLogin(ctx, OAuthInput{
		Provider: "apple", ProviderID: "a-9", Email: "link@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, linked.User.ID)
	require.Len(t, linked.User.Providers, 1)
	assert.Equal(t, "apple", linked.User.Providers[0].ProviderName)
	assert.True(t, linked.User.EmailVerified)
}

func TestSyncAnonymousDataMerges(t *testing.T) {
	svc, _, _, _ := newAuthService()
	ctx := context.Background()

	_, err := svc.AnonymousLogin(ctx, "device-s", "iOS", "1.0.0")
	require.NoError(t, err)

	day := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	_, err = svc.SyncAnonymousData(ctx, "device-s", model.SyncData{
		FavoriteWords: []string{"bonjour", "merci"},
		StudySessions: []model.StudySession{{Date: day, WordsStudied: 10, CorrectAnswers: 8, StudySeconds: 300}},
		CurrentStreak: 3,
	})
	require.NoError(t, err)

	// A replayed sync for the same day merges instead of duplicating.
	got, err := svc.SyncAnonymousData(ctx, "device-s", model.SyncData{
		FavoriteWords: []string{"merci", "salut"},
		StudySessions: []model.StudySession{{Date: day.Add(2 * time.Hour), WordsStudied: 5, CorrectAnswers: 5, StudySeconds: 120}},
		CurrentStreak: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"bonjour", "merci", "salut"}, got.SyncData.FavoriteWords)
	require.Len(t, got.SyncData.StudySessions, 1)
	assert.Equal(t, 15, got.SyncData.StudySessions[0].WordsStudied)
	assert.Equal(t, 420, got.SyncData.StudySessions[0].StudySeconds)
	assert.Equal(t, 3, got.SyncData.CurrentStreak)
	assert.False(t, got.LastSyncAt.IsZero())
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _, _, sessions := newAuthService()
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Email: "out@example.com", Password: "pw123456"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.RefreshToken, nil))
	_, err = svc.Refresh(ctx, res.RefreshToken, nil)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	// Logging out an unknown token is a no-op.
	require.NoError(t, svc.Logout(ctx, "never-issued", nil))
	assert.Zero(t, sessions.activeCount(res.User.ID))
}
