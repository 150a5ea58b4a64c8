package models

import (
	"time"
)

type ReactionType string

const (
	ReactionLike ReactionType = "like"
	ReactionLove ReactionType = "love"
	ReactionFire ReactionType = "fire"
	ReactionClap ReactionType = "clap"
	ReactionStar ReactionType = "star"
)

func (t ReactionType) Valid() bool {
	switch t {
	case ReactionLike, ReactionLove, ReactionFire, ReactionClap, ReactionStar:
		return true
	}
	return false
}

// Reaction 每个用户对每个作品最多一条，改类型是原地更新
type Reaction struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	EntryID   uint         `gorm:"not null;uniqueIndex:idx_reaction_entry_user" json:"entry_id"`
	Entry     Entry        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_reaction_entry_user;index" json:"user_id"`
	Type      ReactionType `gorm:"size:10;not null" json:"type"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
