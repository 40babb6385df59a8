// Package filter narrows and orders listing candidates in memory. Every
// function here is pure so it can run on any slice the repository returns.
package filter

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/varsagel/varsagelcom-sub000/internal/model"
)

// Criteria is an AND of every non-empty dimension.
//
// Price bounds use overlap semantics: a listing spans
// [MinPrice or 0, MaxPrice or +Inf]; PriceMin matches when that span's upper
// end is >= PriceMin, PriceMax matches when its lower end is <= PriceMax.
type Criteria struct {
	CategoryID    string
	SubCategoryID string
	City          string
	District      string
	PriceMin      *float64
	PriceMax      *float64
	Fields        map[string]string
}

func (c Criteria) Match(l *model.Listing) bool {
	if c.CategoryID != "" && l.CategoryID != c.CategoryID {
		return false
	}
	if c.SubCategoryID != "" && l.SubCategoryID != c.SubCategoryID {
		return false
	}
	if !containsFold(l.City, c.City) || !containsFold(l.District, c.District) {
		return false
	}
	lo, hi := PriceRange(l)
	if c.PriceMin != nil && hi < *c.PriceMin {
		return false
	}
	if c.PriceMax != nil && lo > *c.PriceMax {
		return false
	}
	for id, want := range c.Fields {
		if strings.TrimSpace(want) == "" {
			continue
		}
		v, ok := l.CategoryData[id]
		if !ok || !containsFold(v.Text(), want) {
			return false
		}
	}
	return true
}

// Empty reports whether c matches every listing.
func (c Criteria) Empty() bool {
	if c.CategoryID != "" || c.SubCategoryID != "" || c.PriceMin != nil || c.PriceMax != nil {
		return false
	}
	if strings.TrimSpace(c.City) != "" || strings.TrimSpace(c.District) != "" {
		return false
	}
	for _, want := range c.Fields {
		if strings.TrimSpace(want) != "" {
			return false
		}
	}
	return true
}

// Apply returns the listings matching c, keeping their order.
func Apply(listings []model.Listing, c Criteria) []model.Listing {
	out := make([]model.Listing, 0, len(listings))
	for i := range listings {
		if c.Match(&listings[i]) {
			out = append(out, listings[i])
		}
	}
	return out
}

// PriceRange returns the effective [lo, hi] span of a listing.
func PriceRange(l *model.Listing) (float64, float64) {
	lo, hi := 0.0, math.Inf(1)
	if l.MinPrice != nil {
		lo = *l.MinPrice
	}
	if l.MaxPrice != nil {
		hi = *l.MaxPrice
	}
	return lo, hi
}

type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortPriceAsc   SortKey = "price-asc"
	SortPriceDesc  SortKey = "price-desc"
	SortMostViewed SortKey = "most-viewed"
)

// ParseSort falls back to newest for unknown keys.
func ParseSort(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortOldest, SortPriceAsc, SortPriceDesc, SortMostViewed:
		return k
	}
	return SortNewest
}

// Sort orders listings in place. Ties fall back to id so the order is total.
func Sort(listings []model.Listing, key SortKey) {
	less := func(a, b *model.Listing) bool {
		switch key {
		case SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		case SortPriceAsc:
			pa, pb := sortPriceLow(a), sortPriceLow(b)
			if pa != pb {
				return pa < pb
			}
			return a.ID < b.ID
		case SortPriceDesc:
			pa, pb := sortPriceHigh(a), sortPriceHigh(b)
			if pa != pb {
				return pa > pb
			}
			return a.ID < b.ID
		case SortMostViewed:
			if a.ViewCount != b.ViewCount {
				return a.ViewCount > b.ViewCount
			}
			return a.ID < b.ID
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}
	}
	sort.SliceStable(listings, func(i, j int) bool {
		return less(&listings[i], &listings[j])
	})
}

// sortPriceLow is the lower bound, or the upper bound when only that is set.
func sortPriceLow(l *model.Listing) float64 {
	if l.MinPrice != nil {
		return *l.MinPrice
	}
	if l.MaxPrice != nil {
		return *l.MaxPrice
	}
	return 0
}

func sortPriceHigh(l *model.Listing) float64 {
	if l.MaxPrice != nil {
		return *l.MaxPrice
	}
	if l.MinPrice != nil {
		return *l.MinPrice
	}
	return 0
}

// Page slices out one page. page starts at 1.
func Page(listings []model.Listing, page, limit int) []model.Listing {
	if page < 1 || limit < 1 {
		return []model.Listing{}
	}
	pages := len(listings) / limit
	if len(listings)%limit != 0 {
		pages++
	}
	if page > pages {
		return []model.Listing{}
	}
	start := (page - 1) * limit
	end := start + limit
	if end > len(listings) {
		end = len(listings)
	}
	return listings[start:end]
}

func containsFold(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return true
	}
	return strings.Contains(fold(haystack), fold(needle))
}

// fold lowers Turkish text and merges dotless and dotted i.
func fold(s string) string {
	return strings.ReplaceAll(strings.ToLowerSpecial(unicode.TurkishCase, s), "ı", "i")
}
