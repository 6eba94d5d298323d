// Package service implements the business logic between the HTTP
// handlers and the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prodicts/prodicts-backend/internal/model"
	"github.com/prodicts/prodicts-backend/internal/repository"
	"github.com/prodicts/prodicts-backend/internal/token"
	"github.com/prodicts/prodicts-backend/internal/utils"
)

// Auth failure modes the handlers translate into HTTP statuses.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidRefresh     = errors.New("refresh token is invalid or expired")
	ErrRefreshReused      = errors.New("refresh token has already been used")
	ErrDeviceUpgraded     = errors.New("device was upgraded to a registered account")
	ErrAlreadyUpgraded    = errors.New("account was already upgraded")
)

// UserStore is the slice of the user repository the auth flow needs.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByProvider(ctx context.Context, providerName, providerID string) (*model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, u *model.User) error
}

// AnonymousStore manages device-scoped session records.
type AnonymousStore interface {
	Create(ctx context.Context, a *model.AnonymousUser) error
	GetByDeviceID(ctx context.Context, deviceID string) (*model.AnonymousUser, error)
	Update(ctx context.Context, a *model.AnonymousUser) error
	Touch(ctx context.Context, deviceID string) error
	MarkUpgraded(ctx context.Context, deviceID, userID string) error
}

// SessionStore manages refresh tokens for registered sessions.
type SessionStore interface {
	Issue(ctx context.Context, userID, tokenValue, jwtID string, deviceID *string) (*model.RefreshToken, error)
	Lookup(ctx context.Context, tokenValue string) (*model.RefreshToken, error)
	Rotate(ctx context.Context, old *model.RefreshToken, newTokenValue, newJWTID string) (*model.RefreshToken, error)
	RevokeOne(ctx context.Context, tokenValue string, ip *string) error
	RevokeAllForUser(ctx context.Context, userID string, ip *string) error
	RevokeAllForDevice(ctx context.Context, deviceID string, ip *string) error
}

// AuthService implements both identity kinds: registered accounts
// with rotating refresh tokens, and anonymous device sessions with
// long-lived access tokens and no refresh token at all.
type AuthService struct {
	Users      UserStore
	Anonymous  AnonymousStore
	Sessions   SessionStore
	Tokens     *token.Issuer
	BcryptCost int
}

func NewAuthService(users UserStore, anon AnonymousStore, sessions SessionStore, tokens *token.Issuer, bcryptCost int) *AuthService {
	return &AuthService{Users: users, Anonymous: anon, Sessions: sessions, Tokens: tokens, BcryptCost: bcryptCost}
}

// AuthResult is what every successful authentication returns.
// RefreshToken is empty for anonymous sessions.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         *model.User
	DeviceID     string
}

// RegisterInput carries a new email/password registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	DeviceID  string // optional: the device registering
}

// Register creates an account and signs it in. The email must be
// unused among active accounts.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	taken, err := s.Users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := utils.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        email,
		PasswordHash: &hash,
	}
	if in.DeviceID != "" {
		u.DeviceIDs = []string{in.DeviceID}
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return s.signIn(ctx, u, in.DeviceID)
}

// Login authenticates an email/password pair. Provider-only accounts
// have no password hash and always fail here, without revealing why.
func (s *AuthService) Login(ctx context.Context, email, password, deviceID string) (*AuthResult, error) {
	u, err := s.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.PasswordHash == nil || !utils.VerifyPassword(*u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if deviceID != "" {
		s.rememberDevice(ctx, u, deviceID)
	}
	return s.signIn(ctx, u, deviceID)
}

// OAuthInput is the verified payload from a provider sign-in. Token
// verification against the provider happens upstream; by the time it
// reaches the service the identity is trusted.
type OAuthInput struct {
	Provider          string // "google", "apple"
	ProviderID        string
	Email             string
	DisplayName       string
	ProfilePictureURL *string
	AccessToken       *string
	RefreshToken      *string
	DeviceID          string
}

// OAuthLogin resolves a provider identity three ways, in order:
// an account already linked to this provider id signs in; otherwise
// an account with the same email gets the provider linked; otherwise
// a fresh account is created with no password.
func (s *AuthService) OAuthLogin(ctx context.Context, in OAuthInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	now := time.Now().UTC()

	u, err := s.Users.GetByProvider(ctx, in.Provider, in.ProviderID)
	switch {
	case err == nil:
		if p := u.FindProvider(in.Provider, in.ProviderID); p != nil {
			p.LastUsedAt = &now
			p.AccessToken = in.AccessToken
			p.RefreshToken = in.RefreshToken
		}
		if err := s.Users.Update(ctx, u); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		u, err = s.linkOrCreateOAuth(ctx, in, email, now)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if in.DeviceID != "" {
		s.rememberDevice(ctx, u, in.DeviceID)
	}
	return s.signIn(ctx, u, in.DeviceID)
}

func (s *AuthService) linkOrCreateOAuth(ctx context.Context, in OAuthInput, email string, now time.Time) (*model.User, error) {
	entry := model.UserProvider{
		ProviderName:      in.Provider,
		ProviderID:        in.ProviderID,
		Email:             email,
		ProfilePictureURL: in.ProfilePictureURL,
		AccessToken:       in.AccessToken,
		RefreshToken:      in.RefreshToken,
		IsActive:          true,
		CreatedAt:         now,
		LastUsedAt:        &now,
	}
	if in.DisplayName != "" {
		name := in.DisplayName
		entry.DisplayName = &name
	}

	u, err := s.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		u.Providers = append(u.Providers, entry)
		u.EmailVerified = true
		if u.ProfilePictureURL == nil {
			u.ProfilePictureURL = in.ProfilePictureURL
		}
		if err := s.Users.Update(ctx, u); err != nil {
			return nil, err
		}
		return u, nil
	case errors.Is(err, repository.ErrNotFound):
		first, last := splitName(in.DisplayName)
		u = &model.User{
			FirstName:         first,
			LastName:          last,
			Email:             email,
			EmailVerified:     true,
			ProfilePictureURL: in.ProfilePictureURL,
			Providers:         []model.UserProvider{entry},
			ProviderUserID:    &entry.ProviderID,
		}
		if err := s.Users.Create(ctx, u); err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, err
	}
}

// AnonymousLogin signs a device in without an account. A device gets
// one record; repeated calls reuse it and bump last activity. The
// token lives 24x longer than a registered one and the session has no
// refresh token, so no server-side state exists to revoke.
func (s *AuthService) AnonymousLogin(ctx context.Context, deviceID, deviceType, appVersion string) (*AuthResult, error) {
	a, err := s.Anonymous.GetByDeviceID(ctx, deviceID)
	switch {
	case err == nil:
		if a.IsUpgraded {
			return nil, ErrDeviceUpgraded
		}
		if err := s.Anonymous.Touch(ctx, deviceID); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		a = &model.AnonymousUser{
			DeviceID:   deviceID,
			DeviceType: deviceType,
			AppVersion: appVersion,
		}
		if err := s.Anonymous.Create(ctx, a); err != nil {
			// A concurrent login created the record first; use it.
			if !errors.Is(err, repository.ErrConflict) {
				return nil, err
			}
		}
	default:
		return nil, err
	}

	access, err := s.Tokens.IssueAnonymousToken(deviceID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken: access.Token,
		ExpiresAt:   access.ExpiresAt,
		DeviceID:    deviceID,
	}, nil
}

// UpgradeAnonymous converts a device session into a registered
// account, exactly once per device. The new account records which
// anonymous record it came from so the client can migrate sync data.
func (s *AuthService) UpgradeAnonymous(ctx context.Context, deviceID string, in RegisterInput) (*AuthResult, error) {
	a, err := s.Anonymous.GetByDeviceID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if a.IsUpgraded {
		return nil, ErrAlreadyUpgraded
	}

	// The device changes hands identity-wise: any refresh tokens other
	// accounts left on it are dead weight, revoke them before the new
	// account's session is issued.
	if err := s.Sessions.RevokeAllForDevice(ctx, deviceID, nil); err != nil {
		return nil, err
	}

	in.DeviceID = deviceID
	res, err := s.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	res.User.AnonymousUserID = &a.ID
	if err := s.Users.Update(ctx, res.User); err != nil {
		return nil, err
	}
	if err := s.Anonymous.MarkUpgraded(ctx, deviceID, res.User.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyUpgraded
		}
		return nil, err
	}
	return res, nil
}

// Refresh rotates a refresh token. Presenting an already-used token
// is treated as theft: the whole user's session family is revoked and
// the caller must authenticate again.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, ip *string) (*AuthResult, error) {
	rt, err := s.Sessions.Lookup(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if rt.IsUsed {
		_ = s.Sessions.RevokeAllForUser(ctx, rt.UserID, ip)
		return nil, ErrRefreshReused
	}
	if !rt.IsActive() {
		return nil, ErrInvalidRefresh
	}

	u, err := s.Users.GetByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	access, err := s.Tokens.IssueUserToken(u, "")
	if err != nil {
		return nil, err
	}
	next, err := s.Tokens.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	if _, err := s.Sessions.Rotate(ctx, rt, next, access.JWTID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost a race with another rotation of the same token.
			_ = s.Sessions.RevokeAllForUser(ctx, rt.UserID, ip)
			return nil, ErrRefreshReused
		}
		return nil, err
	}
	return &AuthResult{
		AccessToken:  access.Token,
		RefreshToken: next,
		ExpiresAt:    access.ExpiresAt,
		User:         u,
	}, nil
}

// SyncAnonymousData merges a device's locally accumulated study data
// into its record. Counters take the larger of the two values and
// study sessions for the same calendar day merge instead of
// duplicating, so replaying a sync is harmless.
func (s *AuthService) SyncAnonymousData(ctx context.Context, deviceID string, incoming model.SyncData) (*model.AnonymousUser, error) {
	a, err := s.Anonymous.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if a.IsUpgraded {
		return nil, ErrDeviceUpgraded
	}

	a.SyncData = mergeSyncData(a.SyncData, incoming)
	a.LastSyncAt = time.Now().UTC()
	if err := s.Anonymous.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func mergeSyncData(current, incoming model.SyncData) model.SyncData {
	merged := current

	seen := make(map[string]bool, len(merged.FavoriteWords))
	for _, w := range merged.FavoriteWords {
		seen[w] = true
	}
	for _, w := range incoming.FavoriteWords {
		if !seen[w] {
			merged.FavoriteWords = append(merged.FavoriteWords, w)
			seen[w] = true
		}
	}

	if merged.UserPreferences == nil && len(incoming.UserPreferences) > 0 {
		merged.UserPreferences = make(map[string]string, len(incoming.UserPreferences))
	}
	for k, v := range incoming.UserPreferences {
		merged.UserPreferences[k] = v
	}

	byDay := make(map[string]int, len(merged.StudySessions))
	for i, sess := range merged.StudySessions {
		byDay[sess.Date.UTC().Format("2006-01-02")] = i
	}
	for _, sess := range incoming.StudySessions {
		day := sess.Date.UTC().Format("2006-01-02")
		if i, ok := byDay[day]; ok {
			merged.StudySessions[i].WordsStudied += sess.WordsStudied
			merged.StudySessions[i].CorrectAnswers += sess.CorrectAnswers
			merged.StudySessions[i].StudySeconds += sess.StudySeconds
			continue
		}
		merged.StudySessions = append(merged.StudySessions, sess)
		byDay[day] = len(merged.StudySessions) - 1
	}

	merged.TotalWordsLearned = maxInt(merged.TotalWordsLearned, incoming.TotalWordsLearned)
	merged.CurrentStreak = maxInt(merged.CurrentStreak, incoming.CurrentStreak)
	merged.LongestStreak = maxInt(merged.LongestStreak, incoming.LongestStreak)
	merged.TotalStudySeconds = maxInt(merged.TotalStudySeconds, incoming.TotalStudySeconds)
	return merged
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Logout revokes one refresh token. Unknown tokens are a no-op so
// logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, ip *string) error {
	return s.Sessions.RevokeOne(ctx, refreshToken, ip)
}

// LogoutAll revokes every refresh token the user holds.
func (s *AuthService) LogoutAll(ctx context.Context, userID string, ip *string) error {
	return s.Sessions.RevokeAllForUser(ctx, userID, ip)
}

// signIn issues the access/refresh pair for a registered user.
func (s *AuthService) signIn(ctx context.Context, u *model.User, deviceID string) (*AuthResult, error) {
	access, err := s.Tokens.IssueUserToken(u, "")
	if err != nil {
		return nil, err
	}
	refresh, err := s.Tokens.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	var dev *string
	if deviceID != "" {
		dev = &deviceID
	}
	if _, err := s.Sessions.Issue(ctx, u.ID, refresh, access.JWTID, dev); err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  access.Token,
		RefreshToken: refresh,
		ExpiresAt:    access.ExpiresAt,
		User:         u,
	}, nil
}

// rememberDevice appends a device id to the user's device list.
// Failures are swallowed; losing the audit entry never blocks login.
func (s *AuthService) rememberDevice(ctx context.Context, u *model.User, deviceID string) {
	for _, d := range u.DeviceIDs {
		if d == deviceID {
			return
		}
	}
	u.DeviceIDs = append(u.DeviceIDs, deviceID)
	_ = s.Users.Update(ctx, u)
}

func splitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
