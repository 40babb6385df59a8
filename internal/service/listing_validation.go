package service

import (
	"math"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/varsagel/varsagelcom-sub000/internal/catalog"
	"github.com/varsagel/varsagelcom-sub000/internal/model"
)

const (
	maxTitleLen       = 120
	maxDescriptionLen = 5000
	maxLocationLen    = 80
)

// ListingInput is the create and update payload for a listing.
type ListingInput struct {
	Title         string
	Description   string
	MinPrice      *float64
	MaxPrice      *float64
	City          string
	District      string
	CategoryID    string
	SubCategoryID string
	CategoryData  map[string]any
	Images        []string
}

// ValidateDetails checks the free-text part of a listing.
func ValidateDetails(title, description, city, district string) []FieldError {
	var errs []FieldError
	switch t := strings.TrimSpace(title); {
	case t == "":
		errs = append(errs, FieldError{Field: "title", Message: "title is required"})
	case utf8.RuneCountInString(t) > maxTitleLen:
		errs = append(errs, FieldError{Field: "title", Message: "title is too long"})
	}
	switch d := strings.TrimSpace(description); {
	case d == "":
		errs = append(errs, FieldError{Field: "description", Message: "description is required"})
	case utf8.RuneCountInString(d) > maxDescriptionLen:
		errs = append(errs, FieldError{Field: "description", Message: "description is too long"})
	}
	if utf8.RuneCountInString(city) > maxLocationLen {
		errs = append(errs, FieldError{Field: "city", Message: "city is too long"})
	}
	if utf8.RuneCountInString(district) > maxLocationLen {
		errs = append(errs, FieldError{Field: "district", Message: "district is too long"})
	}
	return errs
}

// ValidatePricing requires at least one bound; both must be finite, non-negative
// and ordered.
func ValidatePricing(minPrice, maxPrice *float64) []FieldError {
	var errs []FieldError
	if minPrice == nil && maxPrice == nil {
		return []FieldError{{Field: "minPrice", Message: "enter a minimum or maximum price"}}
	}
	check := func(field string, p *float64) bool {
		if p == nil {
			return true
		}
		if math.IsNaN(*p) || math.IsInf(*p, 0) || *p < 0 {
			errs = append(errs, FieldError{Field: field, Message: "price must be a number of 0 or more"})
			return false
		}
		return true
	}
	okMin, okMax := check("minPrice", minPrice), check("maxPrice", maxPrice)
	if okMin && okMax && minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
		errs = append(errs, FieldError{Field: "maxPrice", Message: "maximum price must not be below minimum price"})
	}
	return errs
}

func ValidateImages(images []string) []FieldError {
	if len(images) > model.MaxListingImages {
		return []FieldError{{Field: "images", Message: "at most 10 images are allowed"}}
	}
	for _, img := range images {
		u, err := url.Parse(img)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return []FieldError{{Field: "images", Message: "images must be http(s) URLs"}}
		}
	}
	return nil
}

// ValidateCategory resolves the category pair and parses the attribute bag.
func ValidateCategory(reg *catalog.Registry, categoryID, subCategoryID string, data map[string]any) (*catalog.SubCategory, catalog.Attributes, []FieldError) {
	if categoryID == "" {
		return nil, nil, []FieldError{{Field: "categoryId", Message: "category is required"}}
	}
	if _, ok := reg.GetCategoryByID(categoryID); !ok {
		return nil, nil, []FieldError{{Field: "categoryId", Message: "unknown category"}}
	}
	if subCategoryID == "" {
		return nil, nil, []FieldError{{Field: "subCategoryId", Message: "subcategory is required"}}
	}
	sub, ok := reg.GetSubCategoryByID(categoryID, subCategoryID)
	if !ok {
		return nil, nil, []FieldError{{Field: "subCategoryId", Message: "unknown subcategory"}}
	}
	attrs, errs := reg.ParseAttributes(sub, data)
	if len(errs) > 0 {
		return sub, nil, errs
	}
	return sub, attrs, nil
}

// validate runs every listing rule and returns the typed attribute bag.
func (in ListingInput) validate(reg *catalog.Registry) (catalog.Attributes, error) {
	var errs []FieldError
	errs = append(errs, ValidateDetails(in.Title, in.Description, in.City, in.District)...)
	errs = append(errs, ValidatePricing(in.MinPrice, in.MaxPrice)...)
	errs = append(errs, ValidateImages(in.Images)...)
	_, attrs, catErrs := ValidateCategory(reg, in.CategoryID, in.SubCategoryID, in.CategoryData)
	errs = append(errs, catErrs...)
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return attrs, nil
}

func (in ListingInput) apply(l *model.Listing, attrs catalog.Attributes) {
	l.Title = strings.TrimSpace(in.Title)
	l.Description = strings.TrimSpace(in.Description)
	l.MinPrice = in.MinPrice
	l.MaxPrice = in.MaxPrice
	l.City = strings.TrimSpace(in.City)
	l.District = strings.TrimSpace(in.District)
	l.CategoryID = in.CategoryID
	l.SubCategoryID = in.SubCategoryID
	l.CategoryData = attrs
	l.Images = append([]string(nil), in.Images...)
}
