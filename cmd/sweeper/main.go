// Command sweeper runs one finalization sweep and exits. Meant for an
// external cron when the server's in-process ticker is disabled.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"artarena/internal/config"
	"artarena/internal/db"
	"artarena/internal/services"
	"artarena/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger().With("cmd", "sweeper")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(cfg, logger)
	if err != nil {
		logger.Error("open database failed", "error", err)
		os.Exit(1)
	}

	var locker services.Locker = services.NopLocker{}
	if rdb, err := db.OpenRedis(ctx, cfg, logger); err != nil {
		logger.Warn("redis unavailable, sweeping without a lease", "error", err)
	} else if rdb != nil {
		defer rdb.Close()
		locker = services.NewRedisLocker(rdb, logger)
	}

	svc := services.New(store.NewGormStore(gdb, logger), services.SystemClock{}, logger, services.Options{
		XP:              services.PlacementXP(cfg.PlacementXP),
		Locker:          locker,
		SweepLockTTL:    cfg.SweepLockTTL,
		FinalizeTimeout: cfg.FinalizeTimeout,
	})

	outcomes, err := svc.Scheduler.Sweep(ctx)
	if errors.Is(err, services.ErrSweepLocked) {
		logger.Info("another instance is sweeping, nothing to do")
		return
	}
	if err != nil {
		logger.Error("sweep failed", "error", err)
		os.Exit(1)
	}

	failed := 0
	for _, o := range outcomes {
		level := slog.LevelInfo
		if o.Err != nil {
			failed++
			level = slog.LevelError
		}
		logger.Log(ctx, level, "contest swept",
			"contest_id", o.ContestID,
			"contest_title", o.ContestTitle,
			"finalized", o.Finalized,
			"message", o.Message,
		)
	}
	if failed > 0 {
		os.Exit(2)
	}
}
