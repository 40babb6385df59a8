package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/varsagel/varsagelcom-sub000/internal/catalog"
)

type CategoryHandler struct {
	registry *catalog.Registry
}

func NewCategoryHandler(registry *catalog.Registry) *CategoryHandler {
	return &CategoryHandler{registry: registry}
}

type CategoryListResponse struct {
	Categories []catalog.Category `json:"categories"`
}

func (h *CategoryHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, CategoryListResponse{Categories: h.registry.GetAllCategories()})
}

func (h *CategoryHandler) Get(c echo.Context) error {
	cat, ok := h.registry.GetCategoryByID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "category not found"))
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CategoryHandler) GetSubCategory(c echo.Context) error {
	sub, ok := h.registry.GetSubCategoryByID(c.Param("id"), c.Param("sub"))
	if !ok {
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "subcategory not found"))
	}
	return c.JSON(http.StatusOK, sub)
}

type CarBrandListResponse struct {
	Brands []catalog.CarBrand `json:"brands"`
}

func (h *CategoryHandler) CarBrands(c echo.Context) error {
	return c.JSON(http.StatusOK, CarBrandListResponse{Brands: h.registry.CarBrands()})
}
