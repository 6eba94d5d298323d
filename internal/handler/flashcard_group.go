package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/prodicts/prodicts-backend/internal/middleware"
	"github.com/prodicts/prodicts-backend/internal/model"
	"github.com/prodicts/prodicts-backend/internal/repository"
)

// FlashCardGroupHandler serves deck CRUD. Decks are owner-scoped:
// registered users and anonymous devices share the code path, keyed
// by whichever identity the token carries.
type FlashCardGroupHandler struct {
	Groups *repository.FlashCardGroupRepo
}

func NewFlashCardGroupHandler(groups *repository.FlashCardGroupRepo) *FlashCardGroupHandler {
	return &FlashCardGroupHandler{Groups: groups}
}

type groupReq struct {
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	SourceLanguage string  `json:"sourceLanguage"`
	TargetLanguage string  `json:"targetLanguage"`
}

type groupView struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    *string `json:"description,omitempty"`
	SourceLanguage string  `json:"sourceLanguage"`
	TargetLanguage string  `json:"targetLanguage"`
}

func viewGroup(g *model.FlashCardGroup) groupView {
	return groupView{
		ID:             g.ID,
		Name:           g.Name,
		Description:    g.Description,
		SourceLanguage: g.SourceLanguage,
		TargetLanguage: g.TargetLanguage,
	}
}

// ownedGroup loads a group and checks it belongs to the caller. A
// foreign group reads as not found rather than forbidden, so owners
// cannot be enumerated.
func (h *FlashCardGroupHandler) ownedGroup(c echo.Context, id string) (*model.FlashCardGroup, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	g, err := h.Groups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != middleware.OwnerID(c) {
		return nil, repository.ErrNotFound
	}
	return g, nil
}

func (h *FlashCardGroupHandler) Create(c echo.Context) error {
	var req groupReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return fail(c, http.StatusBadRequest, "name is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	g := &model.FlashCardGroup{
		OwnerID:        middleware.OwnerID(c),
		Name:           req.Name,
		Description:    req.Description,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	}
	if err := h.Groups.Create(ctx, g); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fail(c, http.StatusConflict, "a group with this name already exists")
		}
		return failFrom(c, err)
	}
	return ok(c, http.StatusCreated, "group created", viewGroup(g))
}

func (h *FlashCardGroupHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	groups, err := h.Groups.ListByOwner(ctx, middleware.OwnerID(c))
	if err != nil {
		return failFrom(c, err)
	}
	out := make([]groupView, 0, len(groups))
	for i := range groups {
		out = append(out, viewGroup(&groups[i]))
	}
	return ok(c, http.StatusOK, "", out)
}

func (h *FlashCardGroupHandler) Get(c echo.Context) error {
	g, err := h.ownedGroup(c, c.Param("id"))
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "", viewGroup(g))
}

func (h *FlashCardGroupHandler) Update(c echo.Context) error {
	g, err := h.ownedGroup(c, c.Param("id"))
	if err != nil {
		return failFrom(c, err)
	}

	var req groupReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		g.Name = name
	}
	if req.Description != nil {
		g.Description = req.Description
	}
	if req.SourceLanguage != "" {
		g.SourceLanguage = req.SourceLanguage
	}
	if req.TargetLanguage != "" {
		g.TargetLanguage = req.TargetLanguage
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Groups.Update(ctx, g); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fail(c, http.StatusConflict, "a group with this name already exists")
		}
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "group updated", viewGroup(g))
}

func (h *FlashCardGroupHandler) Delete(c echo.Context) error {
	g, err := h.ownedGroup(c, c.Param("id"))
	if err != nil {
		return failFrom(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Groups.Delete(ctx, g.ID); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "group deleted", nil)
}
