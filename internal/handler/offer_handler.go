package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/varsagel/varsagelcom-sub000/internal/middleware"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
	"go.uber.org/zap"
)

type OfferHandler struct {
	svc service.OfferService
	log *zap.Logger
}

func NewOfferHandler(svc service.OfferService, log *zap.Logger) *OfferHandler {
	return &OfferHandler{svc: svc, log: log}
}

type CreateOfferRequest struct {
	Amount       float64        `json:"amount"`
	Message      string         `json:"message" validate:"max=2000"`
	CategoryData map[string]any `json:"categoryData"`
}

type OfferDecisionRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type OfferListResponse struct {
	Items []OfferResponse `json:"items"`
}

func (h *OfferHandler) Create(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	listingID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	var req CreateOfferRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	o, err := h.svc.Create(c.Request().Context(), u.UID, listingID, service.OfferInput{
		Amount:       req.Amount,
		Message:      req.Message,
		CategoryData: req.CategoryData,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, toOffer(o))
}

// ListByListing is only answered for the listing owner.
func (h *OfferHandler) ListByListing(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	listingID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	offers, err := h.svc.ListByListing(c.Request().Context(), u.UID, listingID)
	if err != nil {
		return fail(c, h.log, err)
	}
	resp := OfferListResponse{Items: make([]OfferResponse, 0, len(offers))}
	for i := range offers {
		resp.Items = append(resp.Items, toOffer(&offers[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *OfferHandler) ListMine(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	offers, err := h.svc.ListMine(c.Request().Context(), u.UID)
	if err != nil {
		return fail(c, h.log, err)
	}
	resp := OfferListResponse{Items: make([]OfferResponse, 0, len(offers))}
	for i := range offers {
		o := toOffer(&offers[i].Offer)
		if offers[i].Listing != nil {
			l := toListing(offers[i].Listing)
			o.Listing = &l
		}
		resp.Items = append(resp.Items, o)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *OfferHandler) Accept(c echo.Context) error {
	return h.transition(c, service.OfferAccept)
}

func (h *OfferHandler) Reject(c echo.Context) error {
	return h.transition(c, service.OfferReject)
}

func (h *OfferHandler) transition(c echo.Context, action service.OfferAction) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	var req OfferDecisionRequest
	if c.Request().ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			return fail(c, h.log, err)
		}
	}
	o, err := h.svc.Transition(c.Request().Context(), u.UID, id, action, req.Reason)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toOffer(o))
}
