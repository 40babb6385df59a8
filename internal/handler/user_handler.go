package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/varsagel/varsagelcom-sub000/internal/middleware"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
	"go.uber.org/zap"
)

type UserHandler struct {
	users         service.UserService
	notifications service.NotificationService
	conversations service.ConversationService
	log           *zap.Logger
}

func NewUserHandler(users service.UserService, notifications service.NotificationService, conversations service.ConversationService, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, notifications: notifications, conversations: conversations, log: log}
}

type CountsResponse struct {
	UnreadNotifications int64 `json:"unreadNotifications"`
	UnreadMessages      int64 `json:"unreadMessages"`
}

func (h *UserHandler) GetPublic(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return badRequest(c, "invalid uid")
	}
	u, err := h.users.Get(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toPublicUser(u))
}

func (h *UserHandler) Me(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	return c.JSON(http.StatusOK, toMe(u))
}

func (h *UserHandler) Counts(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	ctx := c.Request().Context()
	notes, err := h.notifications.UnreadCount(ctx, u.UID)
	if err != nil {
		return fail(c, h.log, err)
	}
	msgs, err := h.conversations.UnreadCount(ctx, u.UID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, CountsResponse{UnreadNotifications: notes, UnreadMessages: msgs})
}
