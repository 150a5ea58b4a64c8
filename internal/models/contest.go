package models

import (
	"time"
)

type ContestCategory string

const (
	CategoryArt         ContestCategory = "art"
	CategoryCosplay     ContestCategory = "cosplay"
	CategoryPhotography ContestCategory = "photography"
	CategoryMusic       ContestCategory = "music"
	CategoryVideo       ContestCategory = "video"
)

// RequiredPhases 每个分类必须提交的阶段数（从 phase_1 开始连续）
func (c ContestCategory) RequiredPhases() int {
	switch c {
	case CategoryArt:
		return 3 // 草稿、线稿、成稿
	case CategoryCosplay:
		return 2
	case CategoryPhotography, CategoryMusic, CategoryVideo:
		return 1
	default:
		return 0
	}
}

func (c ContestCategory) Valid() bool {
	return c.RequiredPhases() > 0
}

type ContestStatus string

const (
	StatusUpcoming  ContestStatus = "upcoming"
	StatusActive    ContestStatus = "active"
	StatusEnded     ContestStatus = "ended"
	StatusFinalized ContestStatus = "finalized"
)

type Contest struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	Title                string          `gorm:"not null" json:"title"`
	Description          string          `gorm:"type:text" json:"description"`
	Category             ContestCategory `gorm:"size:20;not null;index" json:"category"`
	ThumbnailURL         string          `json:"thumbnail_url"`
	StartDate            time.Time       `gorm:"not null;index" json:"start_date"`
	EndDate              time.Time       `gorm:"not null;index" json:"end_date"`
	FinalizedAt          *time.Time      `gorm:"index" json:"finalized_at"`   // nil 表示尚未结算，一旦写入不可再改
	PrizePool            int             `gorm:"default:0" json:"prize_pool"` // 仅用于展示
	PrizePoolDistributed bool            `gorm:"default:false" json:"prize_pool_distributed"`
	Winner1stEntryID     *uint           `gorm:"column:winner_1st_entry_id" json:"winner_1st_entry_id"`
	Winner2ndEntryID     *uint           `gorm:"column:winner_2nd_entry_id" json:"winner_2nd_entry_id"`
	Winner3rdEntryID     *uint           `gorm:"column:winner_3rd_entry_id" json:"winner_3rd_entry_id"`
	EntriesCount         int             `gorm:"default:0;not null" json:"entries_count"`
	CreatedBy            uint            `gorm:"index" json:"created_by"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
