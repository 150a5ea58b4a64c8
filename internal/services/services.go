// Package services holds the contest domain logic. Every service receives
// its store, clock and logger explicitly; none of them reach for globals.
package services

import (
	"log/slog"
	"time"

	"artarena/internal/store"
)

type Options struct {
	XP              XPPolicy
	Locker          Locker
	SweepLockTTL    time.Duration
	FinalizeTimeout time.Duration
}

// Services bundles the wired service graph for the binaries and handlers.
type Services struct {
	Store     store.Store
	Counters  *CounterService
	Points    *PointsLedger
	Notifier  *Notifier
	Reactions *ReactionLedger
	Finalizer *Finalizer
	Scheduler *Scheduler
	Entries   *EntryService
	Comments  *CommentService
	Follows   *FollowService
	Contests  *ContestService
	Users     *UserService
}

func New(s store.Store, clock Clock, logger *slog.Logger, opts Options) *Services {
	clock = resolveClock(clock)
	logger = ResolveLogger(logger)

	counters := NewCounterService(logger)
	points := NewPointsLedger(s, logger)
	notifier := NewNotifier(s, logger)
	finalizer := NewFinalizer(s, counters, points, notifier, opts.XP, clock, logger)

	return &Services{
		Store:     s,
		Counters:  counters,
		Points:    points,
		Notifier:  notifier,
		Reactions: NewReactionLedger(s, counters, notifier, clock, logger),
		Finalizer: finalizer,
		Scheduler: NewScheduler(s, finalizer, opts.Locker, SchedulerOptions{
			LockTTL:         opts.SweepLockTTL,
			FinalizeTimeout: opts.FinalizeTimeout,
		}, clock, logger),
		Entries:  NewEntryService(s, counters, notifier, clock, logger),
		Comments: NewCommentService(s, counters, notifier, clock, logger),
		Follows:  NewFollowService(s, counters, notifier, clock, logger),
		Contests: NewContestService(s, clock, logger),
		Users:    NewUserService(s, clock),
	}
}
