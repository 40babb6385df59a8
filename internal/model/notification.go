package model

import "time"

type NotificationType string

const (
	NotificationNewMessage      NotificationType = "NEW_MESSAGE"
	NotificationNewOffer        NotificationType = "NEW_OFFER"
	NotificationOfferAccepted   NotificationType = "OFFER_ACCEPTED"
	NotificationOfferRejected   NotificationType = "OFFER_REJECTED"
	NotificationListingExpired  NotificationType = "LISTING_EXPIRED"
	NotificationListingExpiring NotificationType = "LISTING_EXPIRING"
	NotificationSystem          NotificationType = "SYSTEM"
)

type Notification struct {
	ID          uint64           `gorm:"primaryKey;autoIncrement"`
	UserUID     string           `gorm:"column:user_uid;size:128;index;not null"`
	Type        NotificationType `gorm:"column:type;size:32;not null"`
	Title       string           `gorm:"column:title;size:255"`
	Message     string           `gorm:"column:message;type:text"`
	IsRead      bool             `gorm:"column:is_read;not null;default:false;index"`
	ReadAt      *time.Time       `gorm:"column:read_at"`
	RelatedID   string           `gorm:"column:related_id;size:64"`
	RelatedType string           `gorm:"column:related_type;size:32"`
	ActionURL   string           `gorm:"column:action_url;size:512"`
	CreatedAt   time.Time        `gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
