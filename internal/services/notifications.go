package services

import (
	"context"
	"fmt"
	"log/slog"

	"artarena/internal/models"
	"artarena/internal/store"
)

const defaultNotificationLimit = 50

// Notifier writes notification rows inside the caller's transaction.
type Notifier struct {
	store  store.Store
	logger *slog.Logger
}

func NewNotifier(s store.Store, logger *slog.Logger) *Notifier {
	return &Notifier{store: s, logger: ResolveLogger(logger)}
}

// Notify 写入一条通知；接收者和发起者相同时跳过
func (n *Notifier) Notify(ctx context.Context, repo store.LedgerRepository, notif models.Notification) error {
	if notif.ActorID != nil && *notif.ActorID == notif.UserID {
		return nil
	}
	if err := repo.CreateNotification(ctx, &notif); err != nil {
		return fmt.Errorf("notify user %d (%s): %w", notif.UserID, notif.Type, err)
	}
	return nil
}

// List 返回用户最近的通知
func (n *Notifier) List(ctx context.Context, actorID uint, limit int) ([]models.Notification, error) {
	if actorID == 0 {
		return nil, ErrNotAuthorized
	}
	if limit <= 0 || limit > 200 {
		limit = defaultNotificationLimit
	}
	return n.store.ListNotifications(ctx, actorID, limit)
}

func (n *Notifier) Unread(ctx context.Context, actorID uint) (int64, error) {
	if actorID == 0 {
		return 0, ErrNotAuthorized
	}
	return n.store.CountUnreadNotifications(ctx, actorID)
}

// MarkRead 标记已读，ids 为空时全部标记
func (n *Notifier) MarkRead(ctx context.Context, actorID uint, ids []uint) (int64, error) {
	if actorID == 0 {
		return 0, ErrNotAuthorized
	}
	return n.store.MarkNotificationsRead(ctx, actorID, ids)
}
