package model

import "time"

type Message struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement"`
	ConversationID uint64     `gorm:"column:conversation_id;not null;index"`
	SenderUID      string     `gorm:"column:sender_uid;size:128;not null;index"`
	Content        string     `gorm:"column:content;type:text;not null"`
	IsRead         bool       `gorm:"column:is_read;not null;default:false"`
	ReadAt         *time.Time `gorm:"column:read_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
}

func (Message) TableName() string {
	return "messages"
}
