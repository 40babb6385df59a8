package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/varsagel/varsagelcom-sub000/internal/catalog"
	"github.com/varsagel/varsagelcom-sub000/internal/filter"
	"github.com/varsagel/varsagelcom-sub000/internal/middleware"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
	"github.com/varsagel/varsagelcom-sub000/internal/wizard"
	"go.uber.org/zap"
)

// fieldParamPrefix marks query params that filter on category data,
// e.g. f.brand=apple.
const fieldParamPrefix = "f."

type ListingHandler struct {
	svc      service.ListingService
	registry *catalog.Registry
	log      *zap.Logger
}

func NewListingHandler(svc service.ListingService, registry *catalog.Registry, log *zap.Logger) *ListingHandler {
	return &ListingHandler{svc: svc, registry: registry, log: log}
}

type ListingRequest struct {
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	MinPrice      *float64       `json:"minPrice"`
	MaxPrice      *float64       `json:"maxPrice"`
	City          string         `json:"city"`
	District      string         `json:"district"`
	CategoryID    string         `json:"categoryId" validate:"required"`
	SubCategoryID string         `json:"subCategoryId" validate:"required"`
	CategoryData  map[string]any `json:"categoryData"`
	Images        []string       `json:"images"`
}

func (r ListingRequest) input() service.ListingInput {
	return service.ListingInput{
		Title:         r.Title,
		Description:   r.Description,
		MinPrice:      r.MinPrice,
		MaxPrice:      r.MaxPrice,
		City:          r.City,
		District:      r.District,
		CategoryID:    r.CategoryID,
		SubCategoryID: r.SubCategoryID,
		CategoryData:  r.CategoryData,
		Images:        r.Images,
	}
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive sold deleted"`
	Reason string `json:"reason" validate:"max=500"`
}

type DraftRequest struct {
	Step          string         `json:"step" validate:"required"`
	Publish       bool           `json:"publish"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	MinPrice      *float64       `json:"minPrice"`
	MaxPrice      *float64       `json:"maxPrice"`
	City          string         `json:"city"`
	District      string         `json:"district"`
	CategoryID    string         `json:"categoryId"`
	SubCategoryID string         `json:"subCategoryId"`
	CategoryData  map[string]any `json:"categoryData"`
	Images        []string       `json:"images"`
}

type DraftResponse struct {
	Step     string               `json:"step"`
	NextStep string               `json:"nextStep,omitempty"`
	Valid    bool                 `json:"valid"`
	Fields   []service.FieldError `json:"fields,omitempty"`
}

func (h *ListingHandler) Create(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	var req ListingRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	l, err := h.svc.Create(c.Request().Context(), u.UID, req.input())
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, toListing(l))
}

func (h *ListingHandler) Update(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req ListingRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	l, err := h.svc.Update(c.Request().Context(), u.UID, id, req.input())
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toListing(l))
}

// Get accepts either the row id or a listing number reference.
func (h *ListingHandler) Get(c echo.Context) error {
	d, err := h.svc.Get(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"), middleware.SessionID(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toListingDetail(d))
}

func (h *ListingHandler) List(c echo.Context) error {
	f, err := listingFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	page, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, ListingPageResponse{
		Items:      toListings(page.Items),
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: totalPages(page.Total, page.Limit),
	})
}

func listingFilter(c echo.Context) (service.ListingFilter, error) {
	q := c.QueryParams()
	f := service.ListingFilter{
		CategoryID:    q.Get("category"),
		SubCategoryID: q.Get("subCategory"),
		Search:        q.Get("q"),
		City:          q.Get("city"),
		District:      q.Get("district"),
		Sort:          filter.ParseSort(q.Get("sort")),
	}
	var err error
	if f.PriceMin, err = floatParam(q.Get("minPrice")); err != nil {
		return f, errors.New("invalid minPrice")
	}
	if f.PriceMax, err = floatParam(q.Get("maxPrice")); err != nil {
		return f, errors.New("invalid maxPrice")
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	for key, vals := range q {
		name, ok := strings.CutPrefix(key, fieldParamPrefix)
		if !ok || name == "" || len(vals) == 0 {
			continue
		}
		if f.Fields == nil {
			f.Fields = make(map[string]string)
		}
		f.Fields[name] = vals[0]
	}
	return f, nil
}

func floatParam(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil, errors.New("price must be a finite non-negative number")
	}
	return &v, nil
}

func (h *ListingHandler) UpdateStatus(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req StatusRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	l, err := h.svc.UpdateStatus(c.Request().Context(), u, id, model.ListingStatus(req.Status), req.Reason)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toListing(l))
}

// Draft checks the wizard up to the requested step. With publish set on the
// review step the listing is created.
func (h *ListingHandler) Draft(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	var req DraftRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	step, ok := wizard.ParseStep(req.Step)
	if !ok {
		return badRequest(c, "unknown step")
	}
	d := wizard.Draft{
		CategoryID:    req.CategoryID,
		SubCategoryID: req.SubCategoryID,
		CategoryData:  req.CategoryData,
		Title:         req.Title,
		Description:   req.Description,
		City:          req.City,
		District:      req.District,
		MinPrice:      req.MinPrice,
		MaxPrice:      req.MaxPrice,
		Images:        req.Images,
	}
	next, err := d.Advance(h.registry, step)
	var serr *wizard.StepError
	switch {
	case errors.As(err, &serr):
		return c.JSON(http.StatusUnprocessableEntity, DraftResponse{Step: serr.Step.String(), Fields: serr.Fields})
	case err != nil:
		return badRequest(c, err.Error())
	}
	if !req.Publish {
		return c.JSON(http.StatusOK, DraftResponse{Step: step.String(), NextStep: next.String(), Valid: true})
	}
	if step != wizard.StepReview {
		return badRequest(c, "publish is only allowed on the review step")
	}
	in, err := d.Complete(h.registry)
	if err != nil {
		return badRequest(c, err.Error())
	}
	l, err := h.svc.Create(c.Request().Context(), u.UID, in)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, toListing(l))
}

func (h *ListingHandler) ListMine(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	list, err := h.svc.ListMine(c.Request().Context(), u.UID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": toListings(list)})
}

func (h *ListingHandler) AddFavorite(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.svc.AddFavorite(c.Request().Context(), u.UID, id); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ListingHandler) RemoveFavorite(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.svc.RemoveFavorite(c.Request().Context(), u.UID, id); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ListingHandler) ListFavorites(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return unauthorized(c)
	}
	list, err := h.svc.ListFavorites(c.Request().Context(), u.UID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": toListings(list)})
}

func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
