package services

import (
	"context"
	"fmt"
	"log/slog"

	"artarena/internal/store"
)

// CounterService is the only writer of denormalized counters. Callers pass
// the repository of their current transaction so the counter moves together
// with the row that caused it.
type CounterService struct {
	logger *slog.Logger
}

func NewCounterService(logger *slog.Logger) *CounterService {
	return &CounterService{logger: ResolveLogger(logger)}
}

// Increment 原子加减计数。减到负数时存储层钳到 0，这里只记日志不报错
func (s *CounterService) Increment(ctx context.Context, repo store.CounterRepository, counter store.Counter, id uint, delta int) error {
	if delta == 0 {
		return nil
	}
	clamped, err := repo.Increment(ctx, counter, id, delta)
	if err != nil {
		return fmt.Errorf("increment %s #%d: %w", counter, id, translate(err))
	}
	if clamped {
		s.logger.Warn("counter underflow clamped to zero",
			"event", "counter_underflow",
			"module", "counters",
			"counter", counter.String(),
			"id", id,
			"delta", delta,
		)
	}
	return nil
}
