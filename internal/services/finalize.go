package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"artarena/internal/models"
	"artarena/internal/store"
	"artarena/internal/utils"
)

// PrizeShares are the percentages of the pool paid to placements 1..3.
// Whatever the floors leave over is not paid out.
var PrizeShares = [3]int{50, 20, 10}

type FinalizeOptions struct {
	// Force allows an administrator to close an active contest early.
	// Upcoming contests are never eligible.
	Force bool
}

type WinnerResult struct {
	Placement      int  `json:"placement"`
	EntryID        uint `json:"entry_id"`
	UserID         uint `json:"user_id"`
	ReactionsCount int  `json:"reactions_count"`
	PrizeAmount    int  `json:"prize_amount"`
}

type FinalizationResult struct {
	ContestID   uint           `json:"contest_id"`
	FinalizedAt time.Time      `json:"finalized_at"`
	TotalPool   int            `json:"total_prize_pool"`
	Winners     []WinnerResult `json:"winners"`
	NoWinners   bool           `json:"no_winners"`
	// AlreadyFinalized is set when this call did not write anything and the
	// stored outcome of an earlier finalization is being returned.
	AlreadyFinalized bool `json:"already_finalized"`
}

// ContestFinalizer is what the scheduler and HTTP layer need from Finalizer.
type ContestFinalizer interface {
	Finalize(ctx context.Context, contestID uint, opts FinalizeOptions) (FinalizationResult, error)
}

type Finalizer struct {
	store    store.Store
	counters *CounterService
	points   *PointsLedger
	notifier *Notifier
	xp       XPPolicy
	clock    Clock
	logger   *slog.Logger
}

var _ ContestFinalizer = (*Finalizer)(nil)

func NewFinalizer(s store.Store, counters *CounterService, points *PointsLedger, notifier *Notifier, xp XPPolicy, clock Clock, logger *slog.Logger) *Finalizer {
	if xp == nil {
		xp = DefaultPlacementXP
	}
	return &Finalizer{
		store:    s,
		counters: counters,
		points:   points,
		notifier: notifier,
		xp:       xp,
		clock:    resolveClock(clock),
		logger:   ResolveLogger(logger),
	}
}

// RankEntries orders entries by reactions desc, then earlier submission,
// then lower id. The input slice is not modified.
func RankEntries(entries []models.Entry) []models.Entry {
	ranked := make([]models.Entry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.ReactionsCount != b.ReactionsCount {
			return a.ReactionsCount > b.ReactionsCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return ranked
}

// ComputePrizes takes the reaction counts of the top entries (at most three
// are used) and returns the pool and the floor-rounded prize per placement.
func ComputePrizes(reactions []int) (pool int, prizes []int) {
	n := min(len(reactions), len(PrizeShares))
	for _, r := range reactions[:n] {
		pool += max(r, 0)
	}
	prizes = make([]int, n)
	for i := range prizes {
		prizes[i] = pool * PrizeShares[i] / 100
	}
	return pool, prizes
}

// Finalize 结算比赛：选出前三、发放积分经验，最后以 CAS 写入 finalized_at。
// 全部写入在一个事务里，失败整体回滚，可以安全重试。
func (f *Finalizer) Finalize(ctx context.Context, contestID uint, opts FinalizeOptions) (FinalizationResult, error) {
	now := f.clock.Now()

	contest, err := f.store.GetContest(ctx, contestID)
	if err != nil {
		return FinalizationResult{}, translate(err)
	}
	if contest.FinalizedAt != nil {
		return f.storedResult(ctx, contest)
	}
	if err := checkEligible(contest, now, opts); err != nil {
		return FinalizationResult{}, err
	}

	var result FinalizationResult
	err = f.store.Transaction(ctx, func(tx store.Store) error {
		locked, err := tx.LockContest(ctx, contestID)
		if err != nil {
			return translate(err)
		}
		if locked.FinalizedAt != nil {
			return store.ErrAlreadyFinalized
		}
		if err := checkEligible(locked, now, opts); err != nil {
			return err
		}

		r, err := f.selectAndPay(ctx, tx, locked, now)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	switch {
	case err == nil:
		f.logger.Info("contest finalized",
			"event", "contest_finalized",
			"module", "finalize",
			"contest_id", contestID,
			"winners", len(result.Winners),
			"total_pool", result.TotalPool,
			"forced", opts.Force,
		)
		return result, nil
	case errors.Is(err, store.ErrAlreadyFinalized):
		f.logger.Info("concurrent finalization lost, returning stored result",
			"event", "concurrent_finalization_lost",
			"module", "finalize",
			"contest_id", contestID,
		)
		fresh, getErr := f.store.GetContest(ctx, contestID)
		if getErr != nil {
			return FinalizationResult{}, translate(getErr)
		}
		return f.storedResult(ctx, fresh)
	case errors.Is(err, ErrNotEligible), errors.Is(err, ErrNotFound):
		return FinalizationResult{}, err
	default:
		f.logger.Error("finalization rolled back",
			"event", "finalize_partial_write",
			"module", "finalize",
			"contest_id", contestID,
			"error", err,
		)
		return FinalizationResult{}, fmt.Errorf("%w: contest %d: %w", ErrPartialWrite, contestID, err)
	}
}

func checkEligible(c models.Contest, now time.Time, opts FinalizeOptions) error {
	switch ContestStatus(c, now) {
	case models.StatusUpcoming:
		return ErrNotEligible
	case models.StatusActive:
		if !opts.Force {
			return ErrNotEligible
		}
	}
	return nil
}

func (f *Finalizer) selectAndPay(ctx context.Context, tx store.Store, contest models.Contest, now time.Time) (FinalizationResult, error) {
	result := FinalizationResult{ContestID: contest.ID, FinalizedAt: now}

	// 之前失败的尝试可能留下了获奖行
	if err := tx.DeleteWinners(ctx, contest.ID); err != nil {
		return result, err
	}

	entries, err := tx.ListEntries(ctx, contest.ID, models.EntryApproved)
	if err != nil {
		return result, err
	}
	ranked := RankEntries(entries)
	top := ranked[:min(len(ranked), len(PrizeShares))]

	counts := make([]int, len(top))
	for i, e := range top {
		counts[i] = e.ReactionsCount
	}
	pool, prizes := ComputePrizes(counts)
	result.TotalPool = pool

	var mark store.FinalizeMark
	mark.FinalizedAt = now
	contestRef := utils.UintPtr(contest.ID)

	for i, entry := range top {
		placement := i + 1
		winner := models.ContestWinner{
			ContestID:      contest.ID,
			EntryID:        entry.ID,
			UserID:         entry.UserID,
			Placement:      placement,
			ReactionsCount: entry.ReactionsCount,
			PrizeAmount:    prizes[i],
			CreatedAt:      now,
		}
		if err := tx.CreateWinner(ctx, &winner); err != nil {
			return result, fmt.Errorf("winner #%d: %w", placement, err)
		}
		if err := f.counters.Increment(ctx, tx, store.UserWins, entry.UserID, 1); err != nil {
			return result, err
		}
		if _, err := f.points.Credit(ctx, tx, Award{
			UserID:    entry.UserID,
			Points:    prizes[i],
			XP:        f.xp.XPForPlacement(placement),
			Type:      models.PointTypePrize,
			Action:    placementActions[i],
			ContestID: contestRef,
		}); err != nil {
			return result, err
		}
		if err := f.notifier.Notify(ctx, tx, models.Notification{
			UserID:    entry.UserID,
			Type:      models.NotificationTypeWinner,
			Title:     fmt.Sprintf("You placed #%d in \"%s\"", placement, contest.Title),
			Message:   fmt.Sprintf("Your entry \"%s\" won %d points.", entry.Title, prizes[i]),
			ContestID: contestRef,
			EntryID:   utils.UintPtr(entry.ID),
		}); err != nil {
			return result, err
		}

		mark.WinnerEntryIDs[i] = utils.UintPtr(entry.ID)
		result.Winners = append(result.Winners, WinnerResult{
			Placement:      placement,
			EntryID:        entry.ID,
			UserID:         entry.UserID,
			ReactionsCount: entry.ReactionsCount,
			PrizeAmount:    prizes[i],
		})
	}
	result.NoWinners = len(result.Winners) == 0

	// finalized_at 必须最后写
	if err := tx.MarkFinalized(ctx, contest.ID, mark); err != nil {
		return result, err
	}
	return result, nil
}

// storedResult rebuilds the outcome of a finished finalization from the
// persisted winner rows. Nothing is written.
func (f *Finalizer) storedResult(ctx context.Context, contest models.Contest) (FinalizationResult, error) {
	winners, err := f.store.ListWinners(ctx, contest.ID)
	if err != nil {
		return FinalizationResult{}, err
	}
	result := FinalizationResult{
		ContestID:        contest.ID,
		AlreadyFinalized: true,
	}
	if contest.FinalizedAt != nil {
		result.FinalizedAt = *contest.FinalizedAt
	}
	for _, w := range winners {
		result.TotalPool += w.ReactionsCount
		result.Winners = append(result.Winners, WinnerResult{
			Placement:      w.Placement,
			EntryID:        w.EntryID,
			UserID:         w.UserID,
			ReactionsCount: w.ReactionsCount,
			PrizeAmount:    w.PrizeAmount,
		})
	}
	result.NoWinners = len(result.Winners) == 0
	return result, nil
}
