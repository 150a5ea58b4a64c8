package services

import (
	"context"

	"artarena/internal/models"
	"artarena/internal/store"
	"artarena/internal/utils"
)

// Profile 用户主页展示的数据
type Profile struct {
	models.User
	LevelName   string `json:"level_name"`
	NextLevelXP int    `json:"next_level_xp"`
	DaysJoined  int    `json:"days_joined"`
}

type UserService struct {
	store store.Store
	clock Clock
}

func NewUserService(s store.Store, clock Clock) *UserService {
	return &UserService{store: s, clock: resolveClock(clock)}
}

func (s *UserService) Get(ctx context.Context, id uint) (models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	return u, translate(err)
}

func (s *UserService) Profile(ctx context.Context, id uint) (Profile, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	_, name := utils.LevelForXP(u.XP)
	return Profile{
		User:        u,
		LevelName:   name,
		NextLevelXP: utils.NextLevelXP(u.XP),
		DaysJoined:  utils.GetDaysSinceJoined(u.CreatedAt, s.clock.Now()),
	}, nil
}
