package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"artarena/internal/config"

	"github.com/redis/go-redis/v9"
)

// OpenRedis 返回 nil, nil 表示未配置 REDIS_ADDR
func OpenRedis(ctx context.Context, cfg config.Config, log *slog.Logger) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	log.Info("redis connection established", "event", "redis_connected", "addr", cfg.RedisAddr)
	return rdb, nil
}
