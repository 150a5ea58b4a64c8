package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"artarena/internal/models"
	"artarena/internal/store"
	"artarena/internal/utils"
)

// ReactionResult is the state of one user's reaction after a call.
type ReactionResult struct {
	EntryID        uint                 `json:"entry_id"`
	Type           *models.ReactionType `json:"type"`
	ReactionsCount int                  `json:"reactions_count"`
	// Changed reports whether the call altered anything at all.
	Changed bool `json:"changed"`
}

// ReactionLedger keeps at most one reaction per (entry, user) and moves
// Entry.reactions_count together with the row that justifies it.
type ReactionLedger struct {
	store    store.Store
	counters *CounterService
	notifier *Notifier
	clock    Clock
	logger   *slog.Logger
}

func NewReactionLedger(s store.Store, counters *CounterService, notifier *Notifier, clock Clock, logger *slog.Logger) *ReactionLedger {
	return &ReactionLedger{
		store:    s,
		counters: counters,
		notifier: notifier,
		clock:    resolveClock(clock),
		logger:   ResolveLogger(logger),
	}
}

// React sets the reaction to *t, or clears it when t is nil.
func (l *ReactionLedger) React(ctx context.Context, actorID, entryID, userID uint, t *models.ReactionType) (ReactionResult, error) {
	if t == nil {
		return l.ClearReaction(ctx, actorID, entryID, userID)
	}
	return l.SetReaction(ctx, actorID, entryID, userID, *t)
}

// SetReaction 首次点评 +1，改类型不动计数，同类型重复提交什么都不做
func (l *ReactionLedger) SetReaction(ctx context.Context, actorID, entryID, userID uint, t models.ReactionType) (ReactionResult, error) {
	if actorID == 0 || actorID != userID {
		return ReactionResult{}, ErrNotAuthorized
	}
	if !t.Valid() {
		return ReactionResult{}, invalid("unknown reaction type %q", t)
	}

	now := l.clock.Now()
	result := ReactionResult{EntryID: entryID, Type: &t}
	err := l.store.Transaction(ctx, func(tx store.Store) error {
		entry, err := approvedEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}

		inserted, changed, err := putReaction(ctx, tx, entryID, userID, t, now)
		if err != nil {
			return err
		}

		if inserted {
			if err := l.counters.Increment(ctx, tx, store.EntryReactions, entryID, 1); err != nil {
				return err
			}
			if err := l.counters.Increment(ctx, tx, store.UserReactionsReceived, entry.UserID, 1); err != nil {
				return err
			}
			if err := l.notifier.Notify(ctx, tx, models.Notification{
				UserID:    entry.UserID,
				ActorID:   utils.UintPtr(userID),
				Type:      models.NotificationTypeReaction,
				Title:     "New reaction",
				Message:   fmt.Sprintf("Someone reacted %s to \"%s\"", t, entry.Title),
				ContestID: utils.UintPtr(entry.ContestID),
				EntryID:   utils.UintPtr(entryID),
			}); err != nil {
				return err
			}
		}
		result.Changed = changed

		fresh, err := tx.GetEntry(ctx, entryID)
		if err != nil {
			return translate(err)
		}
		result.ReactionsCount = fresh.ReactionsCount
		return nil
	})
	if err != nil {
		return ReactionResult{}, err
	}

	if result.Changed {
		l.logger.Debug("reaction set",
			"event", "reaction_set",
			"module", "reactions",
			"entry_id", entryID,
			"user_id", userID,
			"type", string(t),
		)
	}
	return result, nil
}

// putReaction 插入点评，已存在时改类型，返回 (inserted, changed)。
// 插入冲突后那一行又被并发删除时，回头重试一次插入
func putReaction(ctx context.Context, tx store.Store, entryID, userID uint, t models.ReactionType, now time.Time) (bool, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := tx.InsertReaction(ctx, &models.Reaction{
			EntryID:   entryID,
			UserID:    userID,
			Type:      t,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return false, false, err
		}
		if ok {
			return true, true, nil
		}

		existing, err := tx.GetReaction(ctx, entryID, userID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, false, err
		}
		if existing.Type == t {
			return false, false, nil
		}
		err = tx.UpdateReactionType(ctx, entryID, userID, t, now)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, false, err
		}
		return false, true, nil
	}
	return false, false, fmt.Errorf("reaction %d/%d kept disappearing: %w", entryID, userID, ErrNotFound)
}

// ClearReaction 删除存在的点评并 -1，不存在时什么都不做
func (l *ReactionLedger) ClearReaction(ctx context.Context, actorID, entryID, userID uint) (ReactionResult, error) {
	if actorID == 0 || actorID != userID {
		return ReactionResult{}, ErrNotAuthorized
	}

	result := ReactionResult{EntryID: entryID}
	err := l.store.Transaction(ctx, func(tx store.Store) error {
		entry, err := approvedEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}

		deleted, err := tx.DeleteReaction(ctx, entryID, userID)
		if err != nil {
			return err
		}
		if deleted {
			if err := l.counters.Increment(ctx, tx, store.EntryReactions, entryID, -1); err != nil {
				return err
			}
			if err := l.counters.Increment(ctx, tx, store.UserReactionsReceived, entry.UserID, -1); err != nil {
				return err
			}
			result.Changed = true
		}

		fresh, err := tx.GetEntry(ctx, entryID)
		if err != nil {
			return translate(err)
		}
		result.ReactionsCount = fresh.ReactionsCount
		return nil
	})
	if err != nil {
		return ReactionResult{}, err
	}
	return result, nil
}

// Current 返回用户当前对作品的点评类型，没有时为 nil
func (l *ReactionLedger) Current(ctx context.Context, entryID, userID uint) (*models.ReactionType, error) {
	r, err := l.store.GetReaction(ctx, entryID, userID)
	if err != nil {
		if translate(err) == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &r.Type, nil
}

// approvedEntry 只有审核通过的作品可以被点评和评论
func approvedEntry(ctx context.Context, repo store.EntryRepository, entryID uint) (models.Entry, error) {
	entry, err := repo.GetEntry(ctx, entryID)
	if err != nil {
		return models.Entry{}, translate(err)
	}
	if entry.Status != models.EntryApproved {
		return models.Entry{}, ErrNotFound
	}
	return entry, nil
}
