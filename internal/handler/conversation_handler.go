package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/varsagel/varsagelcom-sub000/internal/middleware"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
	"go.uber.org/zap"
)

type ConversationHandler struct {
	svc service.ConversationService
	log *zap.Logger
}

func NewConversationHandler(svc service.ConversationService, log *zap.Logger) *ConversationHandler {
	return &ConversationHandler{svc: svc, log: log}
}

type StartConversationRequest struct {
	RecipientID string `json:"recipientId" validate:"required"`
	ListingID   uint64 `json:"listingId"`
	Content     string `json:"content"`
}

type MessageRequest struct {
	Content string `json:"content"`
}

type StartConversationResponse struct {
	Conversation ConversationResponse `json:"conversation"`
	Message      MessageResponse      `json:"message"`
}

func (h *ConversationHandler) Start(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	var req StartConversationRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	cv, msg, err := h.svc.Start(c.Request().Context(), u.UID, req.RecipientID, req.ListingID, req.Content)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, StartConversationResponse{
		Conversation: toConversation(cv),
		Message:      toMessage(msg),
	})
}

func (h *ConversationHandler) List(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	convs, err := h.svc.List(c.Request().Context(), u.UID)
	if err != nil {
		return fail(c, h.log, err)
	}
	items := make([]ConversationResponse, 0, len(convs))
	for i := range convs {
		items = append(items, toConversationSummary(&convs[i]))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *ConversationHandler) Messages(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid conversation id")
	}
	msgs, err := h.svc.Messages(c.Request().Context(), u.UID, id)
	if err != nil {
		return fail(c, h.log, err)
	}
	items := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, toMessage(&msgs[i]))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *ConversationHandler) Send(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid conversation id")
	}
	var req MessageRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	msg, err := h.svc.Send(c.Request().Context(), u.UID, id, req.Content)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, toMessage(msg))
}

func (h *ConversationHandler) MarkRead(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid conversation id")
	}
	n, err := h.svc.MarkRead(c.Request().Context(), u.UID, id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"marked": n})
}
