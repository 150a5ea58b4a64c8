package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"artarena/internal/models"
	"artarena/internal/store"
)

// ContestView is a contest with its status resolved at read time.
type ContestView struct {
	models.Contest
	Status models.ContestStatus `json:"status"`
}

type ContestInput struct {
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	Category     models.ContestCategory `json:"category"`
	ThumbnailURL string                 `json:"thumbnail_url"`
	StartDate    time.Time              `json:"start_date"`
	EndDate      time.Time              `json:"end_date"`
	PrizePool    int                    `json:"prize_pool"`
}

func (in ContestInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title is required")
	}
	if !in.Category.Valid() {
		return invalid("unknown category %q", in.Category)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() || !in.EndDate.After(in.StartDate) {
		return invalid("end_date must be after start_date")
	}
	if in.PrizePool < 0 {
		return invalid("prize_pool must not be negative")
	}
	return nil
}

type ContestService struct {
	store  store.Store
	clock  Clock
	logger *slog.Logger
}

func NewContestService(s store.Store, clock Clock, logger *slog.Logger) *ContestService {
	return &ContestService{store: s, clock: resolveClock(clock), logger: ResolveLogger(logger)}
}

func (s *ContestService) view(c models.Contest, now time.Time) ContestView {
	return ContestView{Contest: c, Status: ContestStatus(c, now)}
}

func (s *ContestService) Create(ctx context.Context, admin *models.User, in ContestInput) (ContestView, error) {
	if !admin.IsAdmin() {
		return ContestView{}, ErrNotAuthorized
	}
	if err := in.validate(); err != nil {
		return ContestView{}, err
	}
	contest := models.Contest{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Category:     in.Category,
		ThumbnailURL: in.ThumbnailURL,
		StartDate:    in.StartDate.UTC(),
		EndDate:      in.EndDate.UTC(),
		PrizePool:    in.PrizePool,
		CreatedBy:    admin.ID,
	}
	if err := s.store.CreateContest(ctx, &contest); err != nil {
		return ContestView{}, err
	}
	s.logger.Info("contest created", "event", "contest_created", "module", "contests", "contest_id", contest.ID, "admin_id", admin.ID)
	return s.view(contest, s.clock.Now()), nil
}

// Update 已结算的比赛不可再修改
func (s *ContestService) Update(ctx context.Context, admin *models.User, id uint, in ContestInput) (ContestView, error) {
	if !admin.IsAdmin() {
		return ContestView{}, ErrNotAuthorized
	}
	if err := in.validate(); err != nil {
		return ContestView{}, err
	}
	contest := models.Contest{
		ID:           id,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Category:     in.Category,
		ThumbnailURL: in.ThumbnailURL,
		StartDate:    in.StartDate.UTC(),
		EndDate:      in.EndDate.UTC(),
		PrizePool:    in.PrizePool,
	}
	if err := s.store.UpdateContest(ctx, &contest); err != nil {
		return ContestView{}, translate(err)
	}
	return s.Get(ctx, id)
}

// Delete 只能删除还没有作品、也未结算的比赛
func (s *ContestService) Delete(ctx context.Context, admin *models.User, id uint) error {
	if !admin.IsAdmin() {
		return ErrNotAuthorized
	}
	if err := s.store.DeleteContest(ctx, id); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrContestHasEntries
		}
		return translate(err)
	}
	s.logger.Info("contest deleted", "event", "contest_deleted", "module", "contests", "contest_id", id, "admin_id", admin.ID)
	return nil
}

func (s *ContestService) Get(ctx context.Context, id uint) (ContestView, error) {
	c, err := s.store.GetContest(ctx, id)
	if err != nil {
		return ContestView{}, translate(err)
	}
	return s.view(c, s.clock.Now()), nil
}

// Status is the exposed getContestStatus operation.
func (s *ContestService) Status(ctx context.Context, id uint) (models.ContestStatus, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return v.Status, nil
}

// List 返回所有比赛，filter 非空时只保留该状态
func (s *ContestService) List(ctx context.Context, filter models.ContestStatus) ([]ContestView, error) {
	contests, err := s.store.ListContests(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := make([]ContestView, 0, len(contests))
	for _, c := range contests {
		v := s.view(c, now)
		if filter != "" && v.Status != filter {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Winners 只有结算完成后才返回获奖名单
func (s *ContestService) Winners(ctx context.Context, id uint) ([]models.ContestWinner, error) {
	c, err := s.store.GetContest(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if c.FinalizedAt == nil {
		return []models.ContestWinner{}, nil
	}
	winners, err := s.store.ListWinners(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if winners == nil {
		winners = []models.ContestWinner{}
	}
	return winners, nil
}
