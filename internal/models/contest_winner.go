package models

import (
	"time"
)

// ContestWinner 只由结算引擎写入，写入后不再修改
type ContestWinner struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ContestID      uint      `gorm:"not null;uniqueIndex:idx_winner_contest_place;uniqueIndex:idx_winner_contest_entry" json:"contest_id"`
	Contest        Contest   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	EntryID        uint      `gorm:"not null;uniqueIndex:idx_winner_contest_entry" json:"entry_id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	Placement      int       `gorm:"not null;uniqueIndex:idx_winner_contest_place" json:"placement"`
	ReactionsCount int       `gorm:"not null" json:"reactions_count"` // 结算时的快照
	PrizeAmount    int       `gorm:"not null" json:"prize_amount"`
	CreatedAt      time.Time `json:"created_at"`
}
