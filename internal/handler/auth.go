package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/prodicts/prodicts-backend/internal/middleware"
	"github.com/prodicts/prodicts-backend/internal/model"
	"github.com/prodicts/prodicts-backend/internal/service"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Auth  *service.AuthService
	Users service.UserStore
}

func NewAuthHandler(auth *service.AuthService, users service.UserStore) *AuthHandler {
	return &AuthHandler{Auth: auth, Users: users}
}

// ----- DTOs -----

type registerReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	DeviceID  string `json:"deviceId"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId"`
}

type oauthReq struct {
	Provider          string  `json:"provider"`
	ProviderID        string  `json:"providerId"`
	Email             string  `json:"email"`
	DisplayName       string  `json:"displayName"`
	ProfilePictureURL *string `json:"profilePictureUrl"`
	AccessToken       *string `json:"accessToken"`
	RefreshToken      *string `json:"refreshToken"`
	DeviceID          string  `json:"deviceId"`
}

type anonymousReq struct {
	DeviceID   string `json:"deviceId"`
	DeviceType string `json:"deviceType"`
	AppVersion string `json:"appVersion"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutReq struct {
	RefreshToken string `json:"refreshToken"`
	All          bool   `json:"all"`
}

type userView struct {
	ID                string     `json:"id"`
	FirstName         string     `json:"firstName"`
	LastName          string     `json:"lastName"`
	Email             string     `json:"email"`
	ProfilePictureURL *string    `json:"profilePictureUrl,omitempty"`
	EmailVerified     bool       `json:"emailVerified"`
	SubscriptionPlan  string     `json:"subscriptionPlan"`
	SubscriptionEnds  *time.Time `json:"subscriptionExpiresAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

type authData struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         *userView `json:"user,omitempty"`
	DeviceID     string    `json:"deviceId,omitempty"`
}

func viewUser(u *model.User) *userView {
	if u == nil {
		return nil
	}
	return &userView{
		ID:                u.ID,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Email:             u.Email,
		ProfilePictureURL: u.ProfilePictureURL,
		EmailVerified:     u.EmailVerified,
		SubscriptionPlan:  u.CurrentSubscriptionPlan,
		SubscriptionEnds:  u.SubscriptionExpiresAt,
		CreatedAt:         u.CreatedAt,
	}
}

func viewAuth(res *service.AuthResult) authData {
	return authData{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		User:         viewUser(res.User),
		DeviceID:     res.DeviceID,
	}
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 10*time.Second)
}

func clientIP(c echo.Context) *string {
	ip := c.RealIP()
	if ip == "" {
		return nil
	}
	return &ip
}

// Register creates an account and signs it in immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || len(req.Password) < 8 {
		return fail(c, http.StatusBadRequest, "email and a password of at least 8 characters are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.Register(ctx, service.RegisterInput{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     req.Email,
		Password:  req.Password,
		DeviceID:  req.DeviceID,
	})
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusCreated, "account created", viewAuth(res))
}

// Login authenticates an email/password pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email and password are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.Password, req.DeviceID)
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "signed in", viewAuth(res))
}

// OAuth signs in with a provider identity. The provider token must be
// verified upstream; this endpoint trusts its payload.
func (h *AuthHandler) OAuth(c echo.Context) error {
	var req oauthReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" || req.ProviderID == "" || req.Email == "" {
		return fail(c, http.StatusBadRequest, "provider, providerId and email are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.OAuthLogin(ctx, service.OAuthInput{
		Provider:          provider,
		ProviderID:        req.ProviderID,
		Email:             req.Email,
		DisplayName:       req.DisplayName,
		ProfilePictureURL: req.ProfilePictureURL,
		AccessToken:       req.AccessToken,
		RefreshToken:      req.RefreshToken,
		DeviceID:          req.DeviceID,
	})
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "signed in", viewAuth(res))
}

// Anonymous signs a device in without an account.
func (h *AuthHandler) Anonymous(c echo.Context) error {
	var req anonymousReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		return fail(c, http.StatusBadRequest, "deviceId is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.AnonymousLogin(ctx, req.DeviceID, req.DeviceType, req.AppVersion)
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "signed in anonymously", viewAuth(res))
}

// Refresh rotates a refresh token into a new access/refresh pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.RefreshToken == "" {
		return fail(c, http.StatusBadRequest, "refreshToken is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.Refresh(ctx, req.RefreshToken, clientIP(c))
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "token refreshed", viewAuth(res))
}

// Logout revokes the presented refresh token, or every session the
// user holds when all=true.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if req.All {
		userID, _ := c.Get(middleware.CtxUserID).(string)
		if userID == "" {
			return fail(c, http.StatusBadRequest, "no registered session")
		}
		if err := h.Auth.LogoutAll(ctx, userID, clientIP(c)); err != nil {
			return failFrom(c, err)
		}
		return ok(c, http.StatusOK, "signed out everywhere", nil)
	}

	if req.RefreshToken == "" {
		return fail(c, http.StatusBadRequest, "refreshToken is required")
	}
	if err := h.Auth.Logout(ctx, req.RefreshToken, clientIP(c)); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "signed out", nil)
}

// Me returns the authenticated identity: the full profile for
// registered users, the device id for anonymous sessions.
func (h *AuthHandler) Me(c echo.Context) error {
	if middleware.IsAnonymous(c) {
		deviceID, _ := c.Get(middleware.CtxDeviceID).(string)
		return ok(c, http.StatusOK, "", echo.Map{"anonymous": true, "deviceId": deviceID})
	}

	userID, _ := c.Get(middleware.CtxUserID).(string)
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "", viewUser(u))
}

// Sync merges a device's study data into its anonymous record.
func (h *AuthHandler) Sync(c echo.Context) error {
	if !middleware.IsAnonymous(c) {
		return fail(c, http.StatusBadRequest, "sync is only available to anonymous sessions")
	}
	deviceID, _ := c.Get(middleware.CtxDeviceID).(string)

	var data model.SyncData
	if err := c.Bind(&data); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Auth.SyncAnonymousData(ctx, deviceID, data)
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "synced", echo.Map{
		"deviceId":   a.DeviceID,
		"lastSyncAt": a.LastSyncAt,
		"syncData":   a.SyncData,
	})
}

// Upgrade converts the calling anonymous session into a registered
// account. One-way: a second attempt conflicts.
func (h *AuthHandler) Upgrade(c echo.Context) error {
	if !middleware.IsAnonymous(c) {
		return fail(c, http.StatusBadRequest, "only anonymous sessions can be upgraded")
	}
	deviceID, _ := c.Get(middleware.CtxDeviceID).(string)

	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || len(req.Password) < 8 {
		return fail(c, http.StatusBadRequest, "email and a password of at least 8 characters are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.UpgradeAnonymous(ctx, deviceID, service.RegisterInput{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusCreated, "account upgraded", viewAuth(res))
}
