package models

import (
	"time"
)

type EntryStatus string

const (
	EntryDraft    EntryStatus = "draft"
	EntryPending  EntryStatus = "pending"
	EntryApproved EntryStatus = "approved"
	EntryRejected EntryStatus = "rejected"
)

const MaxPhases = 4

// Entry 一个用户在一场比赛中的唯一投稿
type Entry struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	ContestID       uint        `gorm:"not null;uniqueIndex:idx_entry_contest_user;index" json:"contest_id"`
	Contest         Contest     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID          uint        `gorm:"not null;uniqueIndex:idx_entry_contest_user;index" json:"user_id"`
	User            User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Title           string      `json:"title"`
	Description     string      `gorm:"type:text" json:"description"`
	Phase1URL       string      `gorm:"column:phase_1_url;not null" json:"phase_1_url"`
	Phase2URL       string      `gorm:"column:phase_2_url" json:"phase_2_url,omitempty"`
	Phase3URL       string      `gorm:"column:phase_3_url" json:"phase_3_url,omitempty"`
	Phase4URL       string      `gorm:"column:phase_4_url" json:"phase_4_url,omitempty"`
	Status          EntryStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	RejectionReason string      `gorm:"size:500" json:"rejection_reason,omitempty"`
	ReactionsCount  int         `gorm:"default:0;not null;index" json:"reactions_count"`
	CommentsCount   int         `gorm:"default:0;not null" json:"comments_count"`
	CreatedAt       time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Phases 按顺序返回四个阶段的地址，空字符串表示未提交
func (e *Entry) Phases() [MaxPhases]string {
	return [MaxPhases]string{e.Phase1URL, e.Phase2URL, e.Phase3URL, e.Phase4URL}
}
