package model

import (
	"time"

	"github.com/varsagel/varsagelcom-sub000/internal/catalog"
)

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusRejected OfferStatus = "rejected"
)

type Offer struct {
	ID              uint64             `gorm:"primaryKey;autoIncrement"`
	ListingID       uint64             `gorm:"column:listing_id;not null;index:idx_offers_listing_status"`
	OffererUID      string             `gorm:"column:offerer_uid;size:128;not null;index"`
	Amount          float64            `gorm:"column:amount;not null"`
	Message         string             `gorm:"column:message;type:text"`
	Status          OfferStatus        `gorm:"column:status;size:16;not null;index:idx_offers_listing_status"`
	RejectionReason *string            `gorm:"column:rejection_reason;size:500"`
	CategoryData    catalog.Attributes `gorm:"column:category_data"`
	CreatedAt       time.Time          `gorm:"autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"autoUpdateTime"`
}

func (Offer) TableName() string {
	return "offers"
}
