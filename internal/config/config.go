package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 进程级配置，main 读取一次后按类型传给各组件
type Config struct {
	Port        string
	DatabaseURL string
	DBMaxOpen   int
	DBMaxIdle   int

	SessionSecret string
	JWTSecret     string
	CORSOrigins   []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SweepInterval   time.Duration // 0 关闭进程内定时结算
	SweepLockTTL    time.Duration
	FinalizeTimeout time.Duration

	PlacementXP        [3]int
	ReactionRatePerMin int

	LogLevel  slog.Level
	LogFormat string
}

func Load() (Config, error) {
	cfg := Config{
		Port:        envString("PORT", "8080"),
		DatabaseURL: envString("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=artarena port=5432 sslmode=disable TimeZone=UTC"),
		DBMaxOpen:   envInt("DB_MAX_OPEN_CONNS", 50),
		DBMaxIdle:   envInt("DB_MAX_IDLE_CONNS", 10),

		SessionSecret: envString("SESSION_SECRET", "secret_key_change_me"),
		JWTSecret:     envString("JWT_SECRET", "jwt_secret_change_me"),
		CORSOrigins:   envList("CORS_ORIGINS", []string{"http://localhost:5173"}),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		SweepInterval:   envDuration("SWEEP_INTERVAL", 5*time.Minute),
		SweepLockTTL:    envDuration("SWEEP_LOCK_TTL", 2*time.Minute),
		FinalizeTimeout: envDuration("FINALIZE_TIMEOUT", 30*time.Second),

		PlacementXP: [3]int{
			envInt("XP_FIRST", 500),
			envInt("XP_SECOND", 300),
			envInt("XP_THIRD", 150),
		},
		ReactionRatePerMin: envInt("REACTION_RATE_PER_MIN", 60),

		LogLevel:  envLevel("LOG_LEVEL", slog.LevelInfo),
		LogFormat: envString("LOG_FORMAT", "text"),
	}
	return cfg, nil
}

// NewLogger 按配置创建 slog logger
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envLevel(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return level
}
