// Package wizard validates the multi-step listing form one step at a time.
package wizard

import (
	"fmt"
	"strings"

	"github.com/varsagel/varsagelcom-sub000/internal/catalog"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
)

type Step int

const (
	StepCategory Step = iota
	StepDetails
	StepPricing
	StepImages
	StepReview
)

var stepNames = [...]string{"category", "details", "pricing", "images", "review"}

func (s Step) String() string {
	if s < StepCategory || s > StepReview {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

func ParseStep(name string) (Step, bool) {
	for i, n := range stepNames {
		if strings.EqualFold(name, n) {
			return Step(i), true
		}
	}
	return 0, false
}

// Draft holds whatever the user has filled in so far.
type Draft struct {
	CategoryID    string
	SubCategoryID string
	CategoryData  map[string]any
	Title         string
	Description   string
	City          string
	District      string
	MinPrice      *float64
	MaxPrice      *float64
	Images        []string
}

// StepError names the first step that does not validate.
type StepError struct {
	Step   Step
	Fields []catalog.FieldError
}

func (e *StepError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("wizard: %s step invalid: %s", e.Step, strings.Join(parts, "; "))
}

func (d *Draft) check(reg *catalog.Registry, s Step) []catalog.FieldError {
	switch s {
	case StepCategory:
		_, _, errs := service.ValidateCategory(reg, d.CategoryID, d.SubCategoryID, d.CategoryData)
		return errs
	case StepDetails:
		return service.ValidateDetails(d.Title, d.Description, d.City, d.District)
	case StepPricing:
		return service.ValidatePricing(d.MinPrice, d.MaxPrice)
	case StepImages:
		return service.ValidateImages(d.Images)
	}
	return nil
}

// Advance validates every step up to and including target and returns the
// step the form should show next. Steps are checked in order, so a broken
// category step is reported even when the caller only asked for pricing.
func (d *Draft) Advance(reg *catalog.Registry, target Step) (Step, error) {
	if target < StepCategory || target > StepReview {
		return StepCategory, fmt.Errorf("wizard: unknown step %d", int(target))
	}
	for s := StepCategory; s <= target; s++ {
		if errs := d.check(reg, s); len(errs) > 0 {
			return s, &StepError{Step: s, Fields: errs}
		}
	}
	if target == StepReview {
		return StepReview, nil
	}
	return target + 1, nil
}

// Complete validates the whole draft and converts it to a create input.
func (d *Draft) Complete(reg *catalog.Registry) (service.ListingInput, error) {
	if _, err := d.Advance(reg, StepReview); err != nil {
		return service.ListingInput{}, err
	}
	return service.ListingInput{
		Title:         d.Title,
		Description:   d.Description,
		MinPrice:      d.MinPrice,
		MaxPrice:      d.MaxPrice,
		City:          d.City,
		District:      d.District,
		CategoryID:    d.CategoryID,
		SubCategoryID: d.SubCategoryID,
		CategoryData:  d.CategoryData,
		Images:        append([]string(nil), d.Images...),
	}, nil
}
