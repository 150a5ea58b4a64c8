package services

import (
	"context"
	"log/slog"

	"artarena/internal/models"
	"artarena/internal/store"
	"artarena/internal/utils"
)

type FollowService struct {
	store    store.Store
	counters *CounterService
	notifier *Notifier
	clock    Clock
	logger   *slog.Logger
}

func NewFollowService(s store.Store, counters *CounterService, notifier *Notifier, clock Clock, logger *slog.Logger) *FollowService {
	return &FollowService{
		store:    s,
		counters: counters,
		notifier: notifier,
		clock:    resolveClock(clock),
		logger:   ResolveLogger(logger),
	}
}

// Follow reports whether a new follow row was created.
func (s *FollowService) Follow(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == 0 {
		return false, ErrNotAuthorized
	}
	if actorID == targetID {
		return false, invalid("cannot follow yourself")
	}

	var created bool
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetUser(ctx, targetID); err != nil {
			return translate(err)
		}
		inserted, err := tx.InsertFollow(ctx, &models.Follow{
			FollowerID:  actorID,
			FollowingID: targetID,
			CreatedAt:   s.clock.Now(),
		})
		if err != nil || !inserted {
			return err
		}
		created = true
		if err := s.counters.Increment(ctx, tx, store.UserFollowers, targetID, 1); err != nil {
			return err
		}
		if err := s.counters.Increment(ctx, tx, store.UserFollowing, actorID, 1); err != nil {
			return err
		}
		return s.notifier.Notify(ctx, tx, models.Notification{
			UserID:  targetID,
			ActorID: utils.UintPtr(actorID),
			Type:    models.NotificationTypeFollow,
			Title:   "New follower",
		})
	})
	return created, err
}

// Unfollow reports whether a follow row was removed.
func (s *FollowService) Unfollow(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == 0 {
		return false, ErrNotAuthorized
	}

	var removed bool
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		deleted, err := tx.DeleteFollow(ctx, actorID, targetID)
		if err != nil || !deleted {
			return err
		}
		removed = true
		if err := s.counters.Increment(ctx, tx, store.UserFollowers, targetID, -1); err != nil {
			return err
		}
		return s.counters.Increment(ctx, tx, store.UserFollowing, actorID, -1)
	})
	return removed, err
}
