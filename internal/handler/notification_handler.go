package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/varsagel/varsagelcom-sub000/internal/middleware"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	svc service.NotificationService
	log *zap.Logger
}

func NewNotificationHandler(svc service.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, log: log}
}

type NotificationIDsRequest struct {
	IDs []uint64 `json:"ids"`
}

type NotificationListResponse struct {
	Items       []NotificationResponse `json:"items"`
	Total       int64                  `json:"total"`
	UnreadCount int64                  `json:"unreadCount"`
	Page        int                    `json:"page"`
	Limit       int                    `json:"limit"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unreadCount"`
}

func (h *NotificationHandler) List(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	unreadOnly := c.QueryParam("unreadOnly") == "true"
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	res, err := h.svc.List(c.Request().Context(), u.UID, unreadOnly, page, limit)
	if err != nil {
		return fail(c, h.log, err)
	}
	resp := NotificationListResponse{
		Items:       make([]NotificationResponse, 0, len(res.Items)),
		Total:       res.Total,
		UnreadCount: res.UnreadCount,
		Page:        res.Page,
		Limit:       res.Limit,
	}
	for i := range res.Items {
		resp.Items = append(resp.Items, toNotification(&res.Items[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	var req NotificationIDsRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	n, err := h.svc.MarkRead(c.Request().Context(), u.UID, req.IDs)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, UnreadCountResponse{UnreadCount: n})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	n, err := h.svc.MarkAllRead(c.Request().Context(), u.UID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, UnreadCountResponse{UnreadCount: n})
}

func (h *NotificationHandler) Delete(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	var req NotificationIDsRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	n, err := h.svc.Delete(c.Request().Context(), u.UID, req.IDs)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, UnreadCountResponse{UnreadCount: n})
}
