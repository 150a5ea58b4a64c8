package models

import (
	"time"
)

type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EntryID    uint      `gorm:"not null;index" json:"entry_id"`
	Entry      Entry     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	User       User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ParentID   *uint     `gorm:"index" json:"parent_id"` // nil 为顶层评论
	Content    string    `gorm:"type:text;not null" json:"content"`
	LikesCount int       `gorm:"default:0;not null" json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`

	// 非数据库字段，渲染后的 HTML
	ContentHTML string `gorm:"-" json:"content_html,omitempty"`
}
