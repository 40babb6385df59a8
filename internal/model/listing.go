package model

import (
	"time"

	"github.com/varsagel/varsagelcom-sub000/internal/catalog"
	"gorm.io/datatypes"
)

type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "active"
	ListingStatusPending  ListingStatus = "pending"
	ListingStatusSold     ListingStatus = "sold"
	ListingStatusInactive ListingStatus = "inactive"
	ListingStatusRejected ListingStatus = "rejected"
	ListingStatusDeleted  ListingStatus = "deleted"
	ListingStatusExpired  ListingStatus = "expired"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusActive, ListingStatusPending, ListingStatusSold, ListingStatusInactive,
		ListingStatusRejected, ListingStatusDeleted, ListingStatusExpired:
		return true
	}
	return false
}

// EditableStatuses are the statuses in which an owner may still change a
// listing's content.
var EditableStatuses = []ListingStatus{ListingStatusActive, ListingStatusPending, ListingStatusInactive}

func (s ListingStatus) Editable() bool {
	for _, e := range EditableStatuses {
		if s == e {
			return true
		}
	}
	return false
}

const MaxListingImages = 10

type Listing struct {
	ID               uint64                      `gorm:"primaryKey;autoIncrement"`
	ListingNumber    uint64                      `gorm:"column:listing_number;not null;uniqueIndex:uk_listings_number"`
	Title            string                      `gorm:"size:120;not null"`
	Description      string                      `gorm:"type:text;not null"`
	MinPrice         *float64                    `gorm:"column:min_price"`
	MaxPrice         *float64                    `gorm:"column:max_price"`
	City             string                      `gorm:"size:80;index"`
	District         string                      `gorm:"size:80"`
	CategoryID       string                      `gorm:"column:category_id;size:64;not null;index:idx_listings_category"`
	SubCategoryID    string                      `gorm:"column:sub_category_id;size:64;not null;index:idx_listings_category"`
	CategoryData     catalog.Attributes          `gorm:"column:category_data"`
	Images           datatypes.JSONSlice[string] `gorm:"column:images"`
	Status           ListingStatus               `gorm:"column:status;size:16;not null;index"`
	ModerationReason string                      `gorm:"column:moderation_reason;size:500"`
	ViewCount        uint64                      `gorm:"column:view_count;not null;default:0"`
	OwnerUID         string                      `gorm:"column:owner_uid;size:128;not null;index"`
	ExpiresAt        *time.Time                  `gorm:"column:expires_at;index"`
	CreatedAt        time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt        time.Time                   `gorm:"autoUpdateTime"`
}

func (Listing) TableName() string {
	return "listings"
}

// CoverImage is the first image, if any.
func (l *Listing) CoverImage() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}

type Favorite struct {
	UserUID   string    `gorm:"column:user_uid;primaryKey;size:128"`
	ListingID uint64    `gorm:"column:listing_id;primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Favorite) TableName() string {
	return "favorites"
}
