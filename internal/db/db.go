package db

import (
	"fmt"
	"log/slog"
	"time"

	"artarena/internal/config"
	"artarena/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 连接 Postgres 并配置连接池
func Open(cfg config.Config, log *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpen)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdle)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("database connection established", "event", "db_connected")
	return db, nil
}

// Migrate 自动迁移全部表
func Migrate(db *gorm.DB, log *slog.Logger) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Contest{},
		&models.Entry{},
		&models.Reaction{},
		&models.Comment{},
		&models.ContestWinner{},
		&models.Follow{},
		&models.PointLog{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Info("database migration completed", "event", "db_migrated")
	return nil
}
