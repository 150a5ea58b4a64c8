package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"artarena/internal/config"
	"artarena/internal/db"
	"artarena/internal/router"
	"artarena/internal/services"
	"artarena/internal/store"
	"artarena/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, reading env vars from system")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	gdb, err := db.Open(cfg, logger)
	if err != nil {
		logger.Error("open database failed", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gdb, logger); err != nil {
		logger.Error("migrate database failed", "error", err)
		os.Exit(1)
	}

	// Redis 只用于结算扫描的分布式租约，可选
	var locker services.Locker = services.NopLocker{}
	rdb, err := db.OpenRedis(ctx, cfg, logger)
	if err != nil {
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

	cache, err := utils.NewTTLCache(500)
	if err != nil {
		logger.Error("create cache failed", "error", err)
		os.Exit(1)
	}

	// Initialize Gin
	r := gin.Default()
	r.Use(sessions.Sessions("artarena_session", cookie.NewStore([]byte(cfg.SessionSecret))))
	router.RegisterRoutes(r, router.Deps{
		Services:           svc,
		Cache:              cache,
		Logger:             logger,
		JWTSecret:          []byte(cfg.JWTSecret),
		CORSOrigins:        cfg.CORSOrigins,
		ReactionRatePerMin: cfg.ReactionRatePerMin,
	})

	// 进程内定时结算，SWEEP_INTERVAL=0 时交给 cmd/sweeper
	if cfg.SweepInterval > 0 {
		go svc.Scheduler.Run(ctx, cfg.SweepInterval)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("ArtArena server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("server exited")
}
