package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeReaction NotificationType = "reaction"
	NotificationTypeComment  NotificationType = "comment"
	NotificationTypeReply    NotificationType = "reply"
	NotificationTypeFollow   NotificationType = "follow"
	NotificationTypeWinner   NotificationType = "winner"
	NotificationTypeContest  NotificationType = "contest"
	NotificationTypeSystem   NotificationType = "system"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"` // Receiver
	ActorID   *uint            `gorm:"index" json:"actor_id"`         // Sender
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Title     string           `gorm:"size:200;not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	ContestID *uint            `json:"contest_id,omitempty"`
	EntryID   *uint            `json:"entry_id,omitempty"`
	CommentID *uint            `json:"comment_id,omitempty"`
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
