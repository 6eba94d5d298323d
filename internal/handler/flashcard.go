package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/prodicts/prodicts-backend/internal/middleware"
	"github.com/prodicts/prodicts-backend/internal/model"
	"github.com/prodicts/prodicts-backend/internal/repository"
)

// FlashCardHandler serves individual cards and the spaced-repetition
// review flow.
type FlashCardHandler struct {
	Cards  *repository.FlashCardRepo
	Groups *repository.FlashCardGroupRepo
}

func NewFlashCardHandler(cards *repository.FlashCardRepo, groups *repository.FlashCardGroupRepo) *FlashCardHandler {
	return &FlashCardHandler{Cards: cards, Groups: groups}
}

type cardReq struct {
	GroupID    string `json:"groupId"`
	SourceWord string `json:"sourceWord"`
	TargetWord string `json:"targetWord"`
}

type reviewReq struct {
	Correct bool `json:"correct"`
}

type cardView struct {
	ID             string     `json:"id"`
	GroupID        string     `json:"groupId"`
	SourceWord     string     `json:"sourceWord"`
	TargetWord     string     `json:"targetWord"`
	CurrentStep    int        `json:"currentStep"`
	NextReviewDate time.Time  `json:"nextReviewDate"`
	IsCompleted    bool       `json:"isCompleted"`
	FirstLearnedAt *time.Time `json:"firstLearningDate,omitempty"`
}

func viewCard(f *model.FlashCard) cardView {
	return cardView{
		ID:             f.ID,
		GroupID:        f.GroupID,
		SourceWord:     f.SourceWord,
		TargetWord:     f.TargetWord,
		CurrentStep:    f.CurrentStep,
		NextReviewDate: f.NextReviewDate,
		IsCompleted:    f.IsCompleted,
		FirstLearnedAt: f.FirstLearningDate,
	}
}

// ownedCard loads a card and checks ownership, reading foreign cards
// as not found.
func (h *FlashCardHandler) ownedCard(c echo.Context, id string) (*model.FlashCard, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	card, err := h.Cards.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card.OwnerID != middleware.OwnerID(c) {
		return nil, repository.ErrNotFound
	}
	return card, nil
}

func (h *FlashCardHandler) Create(c echo.Context) error {
	var req cardReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.SourceWord = strings.TrimSpace(req.SourceWord)
	req.TargetWord = strings.TrimSpace(req.TargetWord)
	if req.GroupID == "" || req.SourceWord == "" || req.TargetWord == "" {
		return fail(c, http.StatusBadRequest, "groupId, sourceWord and targetWord are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	owner := middleware.OwnerID(c)
	g, err := h.Groups.GetByID(ctx, req.GroupID)
	if err != nil {
		return failFrom(c, err)
	}
	if g.OwnerID != owner {
		return fail(c, http.StatusNotFound, "not found")
	}

	card := &model.FlashCard{
		GroupID:    req.GroupID,
		OwnerID:    owner,
		SourceWord: req.SourceWord,
		TargetWord: req.TargetWord,
	}
	if err := h.Cards.Create(ctx, card); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusCreated, "card created", viewCard(card))
}

// ListByGroup returns a deck's cards, owner-checked through the
// group.
func (h *FlashCardHandler) ListByGroup(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	g, err := h.Groups.GetByID(ctx, c.Param("id"))
	if err != nil {
		return failFrom(c, err)
	}
	if g.OwnerID != middleware.OwnerID(c) {
		return fail(c, http.StatusNotFound, "not found")
	}

	cards, err := h.Cards.ListByGroup(ctx, g.ID)
	if err != nil {
		return failFrom(c, err)
	}
	out := make([]cardView, 0, len(cards))
	for i := range cards {
		out = append(out, viewCard(&cards[i]))
	}
	return ok(c, http.StatusOK, "", out)
}

// ListDue returns the caller's cards due for review right now.
func (h *FlashCardHandler) ListDue(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	cards, err := h.Cards.ListDue(ctx, middleware.OwnerID(c), time.Now().UTC())
	if err != nil {
		return failFrom(c, err)
	}
	out := make([]cardView, 0, len(cards))
	for i := range cards {
		out = append(out, viewCard(&cards[i]))
	}
	return ok(c, http.StatusOK, "", out)
}

// Review applies one answer to a card and persists the step change.
func (h *FlashCardHandler) Review(c echo.Context) error {
	card, err := h.ownedCard(c, c.Param("id"))
	if err != nil {
		return failFrom(c, err)
	}

	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	card.Advance(req.Correct, time.Now().UTC())

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Cards.Update(ctx, card); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "review recorded", viewCard(card))
}

func (h *FlashCardHandler) Update(c echo.Context) error {
	card, err := h.ownedCard(c, c.Param("id"))
	if err != nil {
		return failFrom(c, err)
	}

	var req cardReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if w := strings.TrimSpace(req.SourceWord); w != "" {
		card.SourceWord = w
	}
	if w := strings.TrimSpace(req.TargetWord); w != "" {
		card.TargetWord = w
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Cards.Update(ctx, card); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "card updated", viewCard(card))
}

func (h *FlashCardHandler) Delete(c echo.Context) error {
	card, err := h.ownedCard(c, c.Param("id"))
	if err != nil {
		return failFrom(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Cards.Delete(ctx, card.ID); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "card deleted", nil)
}
