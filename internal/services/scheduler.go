package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"artarena/internal/store"
)

const sweepLockKey = "artarena:sweep:lock"

// Locker grants a best-effort lease so that only one instance sweeps at a
// time. Correctness never depends on it: finalization is guarded by the
// finalized_at compare-and-set.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// NopLocker always grants the lease. Used when Redis is not configured.
type NopLocker struct{}

func (NopLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}

// 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewRedisLocker(rdb *redis.Client, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{rdb: rdb, logger: ResolveLogger(logger)}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("release sweep lease failed",
				"event", "sweep_lease_release_failed",
				"module", "scheduler",
				"error", err,
			)
		}
	}
	return release, true, nil
}

// SweepOutcome is the per-contest report of one sweep.
type SweepOutcome struct {
	ContestID        uint   `json:"contest_id"`
	ContestTitle     string `json:"contest_title"`
	Finalized        bool   `json:"finalized"`
	AlreadyFinalized bool   `json:"already_finalized"`
	Winners          int    `json:"winners"`
	Message          string `json:"message"`
	Err              error  `json:"-"`
}

type SchedulerOptions struct {
	LockTTL         time.Duration
	FinalizeTimeout time.Duration
}

// Scheduler 定期找出已结束但未结算的比赛并逐个结算
type Scheduler struct {
	store     store.Store
	finalizer ContestFinalizer
	locker    Locker
	opts      SchedulerOptions
	clock     Clock
	logger    *slog.Logger
}

func NewScheduler(s store.Store, finalizer ContestFinalizer, locker Locker, opts SchedulerOptions, clock Clock, logger *slog.Logger) *Scheduler {
	if locker == nil {
		locker = NopLocker{}
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	if opts.FinalizeTimeout <= 0 {
		opts.FinalizeTimeout = 30 * time.Second
	}
	return &Scheduler{
		store:     s,
		finalizer: finalizer,
		locker:    locker,
		opts:      opts,
		clock:     resolveClock(clock),
		logger:    ResolveLogger(logger),
	}
}

// Sweep finalizes every contest whose end date has passed. A failure on one
// contest is recorded in its outcome and does not stop the others.
func (s *Scheduler) Sweep(ctx context.Context) ([]SweepOutcome, error) {
	runID := uuid.NewString()
	log := s.logger.With("module", "scheduler", "run_id", runID)

	release, ok, err := s.locker.TryLock(ctx, sweepLockKey, s.opts.LockTTL)
	switch {
	case err != nil:
		// 锁服务不可用时照常执行，重复结算由 CAS 兜底
		log.Warn("sweep lease unavailable, sweeping without it", "event", "sweep_lease_error", "error", err)
		release = func() {}
	case !ok:
		log.Info("sweep skipped, lease held elsewhere", "event", "sweep_skipped")
		return nil, ErrSweepLocked
	}
	defer release()

	contests, err := s.store.ListEndedUnfinalized(ctx, s.clock.Now())
	if err != nil {
		log.Error("list ended contests failed", "event", "sweep_list_failed", "error", err)
		return nil, err
	}

	started := time.Now()
	outcomes := make([]SweepOutcome, 0, len(contests))
	failed := 0
	for _, c := range contests {
		if ctx.Err() != nil {
			break
		}
		outcome := s.finalizeOne(ctx, c.ID)
		outcome.ContestTitle = c.Title
		if outcome.Err != nil {
			failed++
			log.Error("contest finalization failed",
				"event", "sweep_contest_failed",
				"contest_id", c.ID,
				"error", outcome.Err,
			)
		}
		outcomes = append(outcomes, outcome)
	}

	log.Info("sweep finished",
		"event", "sweep_finished",
		"contests", len(contests),
		"failed", failed,
		"duration", time.Since(started),
	)
	return outcomes, nil
}

func (s *Scheduler) finalizeOne(ctx context.Context, contestID uint) (outcome SweepOutcome) {
	outcome.ContestID = contestID
	defer func() {
		if r := recover(); r != nil {
			outcome.Finalized = false
			outcome.Err = fmt.Errorf("finalize contest %d panicked: %v", contestID, r)
			outcome.Message = outcome.Err.Error()
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, s.opts.FinalizeTimeout)
	defer cancel()

	res, err := s.finalizer.Finalize(cctx, contestID, FinalizeOptions{})
	if err != nil {
		outcome.Err = err
		outcome.Message = err.Error()
		return outcome
	}
	outcome.Finalized = true
	outcome.AlreadyFinalized = res.AlreadyFinalized
	outcome.Winners = len(res.Winners)
	switch {
	case res.AlreadyFinalized:
		outcome.Message = "already finalized"
	case res.NoWinners:
		outcome.Message = "finalized with no approved entries"
	default:
		outcome.Message = fmt.Sprintf("finalized with %d winners, pool %d", len(res.Winners), res.TotalPool)
	}
	return outcome
}

// Run 立即执行一次，然后每隔 interval 执行，直到 ctx 结束
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, ErrSweepLocked) {
			s.logger.Warn("scheduled sweep failed", "event", "sweep_failed", "module", "scheduler", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
