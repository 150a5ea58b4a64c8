package services

import (
	"context"
	"fmt"
	"log/slog"

	"artarena/internal/models"
	"artarena/internal/store"
	"artarena/internal/utils"
)

// 积分动作描述
const (
	ActionPrizeFirst  = "比赛冠军奖金"
	ActionPrizeSecond = "比赛亚军奖金"
	ActionPrizeThird  = "比赛季军奖金"
)

var placementActions = [3]string{ActionPrizeFirst, ActionPrizeSecond, ActionPrizeThird}

// XPPolicy maps a placement (1..3) to the experience a winner receives.
type XPPolicy interface {
	XPForPlacement(placement int) int
}

// PlacementXP is a fixed table indexed by placement-1.
type PlacementXP [3]int

var DefaultPlacementXP = PlacementXP{500, 300, 150}

func (p PlacementXP) XPForPlacement(placement int) int {
	if placement < 1 || placement > len(p) {
		return 0
	}
	return p[placement-1]
}

// Award 一次积分和经验入账
type Award struct {
	UserID    uint
	Points    int
	XP        int
	Type      models.PointType
	Action    string
	ContestID *uint
}

type PointsLedger struct {
	store  store.LedgerRepository
	logger *slog.Logger
}

func NewPointsLedger(s store.LedgerRepository, logger *slog.Logger) *PointsLedger {
	return &PointsLedger{store: s, logger: ResolveLogger(logger)}
}

// Credit 在调用方的事务内记录积分明细、更新余额与经验，并按经验重算等级。
// 积分为 0 时不写明细。
func (p *PointsLedger) Credit(ctx context.Context, tx store.Store, award Award) (models.User, error) {
	if award.Points != 0 {
		log := models.PointLog{
			UserID:    award.UserID,
			Type:      award.Type,
			Amount:    award.Points,
			Action:    award.Action,
			ContestID: award.ContestID,
		}
		if err := tx.CreatePointLog(ctx, &log); err != nil {
			return models.User{}, fmt.Errorf("point log: %w", err)
		}
	}

	user, err := tx.AddRewards(ctx, award.UserID, award.Points, award.XP)
	if err != nil {
		return models.User{}, fmt.Errorf("add rewards to user %d: %w", award.UserID, translate(err))
	}

	level, _ := utils.LevelForXP(user.XP)
	if level != user.Level {
		if err := tx.SetLevel(ctx, user.ID, level); err != nil {
			return models.User{}, fmt.Errorf("set level: %w", err)
		}
		p.logger.Info("user level changed",
			"event", "level_changed",
			"module", "points",
			"user_id", user.ID,
			"from", user.Level,
			"to", level,
		)
		user.Level = level
	}
	return user, nil
}

// History 返回当前用户的积分明细，最新的在前
func (p *PointsLedger) History(ctx context.Context, actorID uint) ([]models.PointLog, error) {
	if actorID == 0 {
		return nil, ErrNotAuthorized
	}
	logs, err := p.store.ListPointLogs(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []models.PointLog{}
	}
	return logs, nil
}
