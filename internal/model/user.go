package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	UID         string     `gorm:"column:uid;primaryKey;size:128"`
	Email       string     `gorm:"column:email;size:255;index"`
	Name        string     `gorm:"column:name;size:120"`
	Role        Role       `gorm:"column:role;size:16;not null;default:USER"`
	IsBlocked   bool       `gorm:"column:is_blocked;not null;default:false"`
	BlockedAt   *time.Time `gorm:"column:blocked_at"`
	BlockReason string     `gorm:"column:block_reason;size:500"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
