package services

import (
	"log/slog"
	"time"
)

// Clock 时间来源。一次操作只取一次 now，避免跨越边界
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

func resolveClock(c Clock) Clock {
	if c == nil {
		return SystemClock{}
	}
	return c
}

// ResolveLogger guarantees a non-nil logger for service code paths.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
