package model

import "time"

// Conversation joins exactly two users. UserAUID sorts before UserBUID so a
// pair maps to one row per listing; ListingID 0 means not tied to a listing.
type Conversation struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement"`
	ListingID     uint64     `gorm:"column:listing_id;not null;default:0;uniqueIndex:uk_conversation_pair"`
	UserAUID      string     `gorm:"column:user_a_uid;size:128;not null;uniqueIndex:uk_conversation_pair;index"`
	UserBUID      string     `gorm:"column:user_b_uid;size:128;not null;uniqueIndex:uk_conversation_pair;index"`
	LastMessageAt *time.Time `gorm:"column:last_message_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// OrderedPair returns the two uids in storage order.
func OrderedPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

func (c *Conversation) HasParticipant(uid string) bool {
	return uid != "" && (c.UserAUID == uid || c.UserBUID == uid)
}

// Other returns the participant that is not uid.
func (c *Conversation) Other(uid string) string {
	if c.UserAUID == uid {
		return c.UserBUID
	}
	return c.UserAUID
}
