package models

import (
	"time"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User 参赛用户。计数字段只由计数服务和结算引擎写入，展示层不要自行统计。
type User struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	Username               string    `gorm:"uniqueIndex;size:20;not null" json:"username"`
	DisplayName            string    `gorm:"size:50" json:"display_name"`
	AvatarURL              string    `json:"avatar_url"`
	Bio                    string    `gorm:"size:200" json:"bio"`
	Role                   UserRole  `gorm:"size:20;default:'user';not null" json:"role"`
	XP                     int       `gorm:"default:0;not null" json:"xp"`
	Level                  int       `gorm:"default:1;not null" json:"level"`
	PointsBalance          int       `gorm:"default:0;not null" json:"points_balance"`
	EntriesCount           int       `gorm:"default:0;not null" json:"entries_count"`
	WinsCount              int       `gorm:"default:0;not null" json:"wins_count"`
	TotalReactionsReceived int       `gorm:"default:0;not null" json:"total_reactions_received"`
	FollowersCount         int       `gorm:"default:0;not null" json:"followers_count"`
	FollowingCount         int       `gorm:"default:0;not null" json:"following_count"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
