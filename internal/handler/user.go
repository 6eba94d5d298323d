package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/prodicts/prodicts-backend/internal/middleware"
	"github.com/prodicts/prodicts-backend/internal/repository"
)

// UserHandler serves the registered user's own profile. All routes
// require a registered session; anonymous identities are rejected by
// the route middleware.
type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(users *repository.UserRepo) *UserHandler {
	return &UserHandler{Users: users}
}

type updateUserReq struct {
	FirstName         *string `json:"firstName"`
	LastName          *string `json:"lastName"`
	ProfilePictureURL *string `json:"profilePictureUrl"`
}

// Get returns the caller's profile.
func (h *UserHandler) Get(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(string)

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "", viewUser(u))
}

// Update patches the caller's profile. Only the provided fields
// change; email and subscription fields are not editable here.
func (h *UserHandler) Update(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(string)

	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return failFrom(c, err)
	}
	if req.FirstName != nil {
		u.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		u.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.ProfilePictureURL != nil {
		u.ProfilePictureURL = req.ProfilePictureURL
	}
	if err := h.Users.Update(ctx, u); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "profile updated", viewUser(u))
}

// Delete soft-deletes the caller's account.
func (h *UserHandler) Delete(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(string)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, userID); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "account deleted", nil)
}
