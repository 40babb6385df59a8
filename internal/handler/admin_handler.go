package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/varsagel/varsagelcom-sub000/internal/middleware"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
	"go.uber.org/zap"
)

// AdminHandler is mounted behind AdminOnly.
type AdminHandler struct {
	svc service.AdminService
	log *zap.Logger
}

func NewAdminHandler(svc service.AdminService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, log: log}
}

type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type StatsResponse struct {
	Users             int64            `json:"users"`
	BlockedUsers      int64            `json:"blockedUsers"`
	Listings          map[string]int64 `json:"listings"`
	TotalListings     int64            `json:"totalListings"`
	Offers            map[string]int64 `json:"offers"`
	TotalOffers       int64            `json:"totalOffers"`
	NewListings24h    int64            `json:"newListings24h"`
	PendingModeration int64            `json:"pendingModeration"`
}

type AdminUserListResponse struct {
	Items []AdminUserResponse `json:"items"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

func (h *AdminHandler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return fail(c, h.log, err)
	}
	resp := StatsResponse{
		Users:             st.Users,
		BlockedUsers:      st.BlockedUsers,
		Listings:          make(map[string]int64, len(st.Listings)),
		TotalListings:     st.TotalListings,
		Offers:            make(map[string]int64, len(st.Offers)),
		TotalOffers:       st.TotalOffers,
		NewListings24h:    st.NewListings24h,
		PendingModeration: st.PendingModeration,
	}
	for k, v := range st.Listings {
		resp.Listings[string(k)] = v
	}
	for k, v := range st.Offers {
		resp.Offers[string(k)] = v
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	res, err := h.svc.ListUsers(c.Request().Context(), c.QueryParam("q"), page, limit)
	if err != nil {
		return fail(c, h.log, err)
	}
	resp := AdminUserListResponse{
		Items: make([]AdminUserResponse, 0, len(res.Items)),
		Total: res.Total,
		Page:  res.Page,
		Limit: res.Limit,
	}
	for i := range res.Items {
		resp.Items = append(resp.Items, toAdminUser(&res.Items[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) Block(c echo.Context) error {
	var req ReasonRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	if err := h.svc.Block(c.Request().Context(), middleware.CurrentUser(c), c.Param("uid"), req.Reason); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) Unblock(c echo.Context) error {
	if err := h.svc.Unblock(c.Request().Context(), middleware.CurrentUser(c), c.Param("uid")); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) PendingListings(c echo.Context) error {
	list, err := h.svc.PendingListings(c.Request().Context())
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": toListings(list)})
}

func (h *AdminHandler) Approve(c echo.Context) error {
	return h.moderate(c, false, func(admin *model.User, id uint64, _ string) (*model.Listing, error) {
		return h.svc.Approve(c.Request().Context(), admin, id)
	})
}

func (h *AdminHandler) Reject(c echo.Context) error {
	return h.moderate(c, true, func(admin *model.User, id uint64, reason string) (*model.Listing, error) {
		return h.svc.Reject(c.Request().Context(), admin, id, reason)
	})
}

func (h *AdminHandler) DeleteListing(c echo.Context) error {
	return h.moderate(c, true, func(admin *model.User, id uint64, reason string) (*model.Listing, error) {
		return h.svc.DeleteListing(c.Request().Context(), admin, id, reason)
	})
}

func (h *AdminHandler) moderate(c echo.Context, needReason bool, apply func(*model.User, uint64, string) (*model.Listing, error)) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	reason := ""
	if needReason {
		var req ReasonRequest
		if err := bind(c, &req); err != nil {
			return fail(c, h.log, err)
		}
		reason = req.Reason
	}
	l, err := apply(middleware.CurrentUser(c), id, reason)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toListing(l))
}
