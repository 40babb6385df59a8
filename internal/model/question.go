package model

import "time"

type Question struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement"`
	ListingID   uint64     `gorm:"column:listing_id;not null;index"`
	AskerUID    string     `gorm:"column:asker_uid;size:128;not null"`
	Question    string     `gorm:"column:question;type:text;not null"`
	Answer      *string    `gorm:"column:answer;type:text"`
	AnswererUID *string    `gorm:"column:answerer_uid;size:128"`
	AnsweredAt  *time.Time `gorm:"column:answered_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
}

func (Question) TableName() string {
	return "questions"
}
