package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/varsagel/varsagelcom-sub000/internal/middleware"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
	"go.uber.org/zap"
)

type QuestionHandler struct {
	svc service.QuestionService
	log *zap.Logger
}

func NewQuestionHandler(svc service.QuestionService, log *zap.Logger) *QuestionHandler {
	return &QuestionHandler{svc: svc, log: log}
}

type QuestionTextRequest struct {
	Text string `json:"text" validate:"required"`
}

func (h *QuestionHandler) List(c echo.Context) error {
	listingID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	qs, err := h.svc.ListByListing(c.Request().Context(), middleware.CurrentUser(c), listingID)
	if err != nil {
		return fail(c, h.log, err)
	}
	items := make([]QuestionResponse, 0, len(qs))
	for i := range qs {
		items = append(items, toQuestion(&qs[i]))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *QuestionHandler) Ask(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	listingID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	var req QuestionTextRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	q, err := h.svc.Ask(c.Request().Context(), u.UID, listingID, req.Text)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, toQuestion(q))
}

func (h *QuestionHandler) Answer(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid question id")
	}
	var req QuestionTextRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	q, err := h.svc.Answer(c.Request().Context(), u.UID, id, req.Text)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toQuestion(q))
}
