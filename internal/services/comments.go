package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"artarena/internal/models"
	"artarena/internal/store"
	"artarena/internal/utils"
)

const maxCommentLength = 2000

type CommentService struct {
	store    store.Store
	counters *CounterService
	notifier *Notifier
	clock    Clock
	logger   *slog.Logger
}

func NewCommentService(s store.Store, counters *CounterService, notifier *Notifier, clock Clock, logger *slog.Logger) *CommentService {
	return &CommentService{
		store:    s,
		counters: counters,
		notifier: notifier,
		clock:    resolveClock(clock),
		logger:   ResolveLogger(logger),
	}
}

// Create 发表评论或回复。回复通知被回复者，顶层评论通知作品作者。
func (s *CommentService) Create(ctx context.Context, actorID, entryID uint, parentID *uint, content string) (models.Comment, error) {
	if actorID == 0 {
		return models.Comment{}, ErrNotAuthorized
	}
	content = strings.TrimSpace(content)
	if content == "" || len([]rune(content)) > maxCommentLength {
		return models.Comment{}, invalid("comment must be 1-%d characters", maxCommentLength)
	}

	comment := models.Comment{
		EntryID:   entryID,
		UserID:    actorID,
		ParentID:  parentID,
		Content:   content,
		CreatedAt: s.clock.Now(),
	}
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		entry, err := approvedEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}

		var parent *models.Comment
		if parentID != nil {
			p, err := tx.GetComment(ctx, *parentID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if err != nil || p.EntryID != entryID {
				return invalid("parent comment does not belong to this entry")
			}
			parent = &p
		}

		if err := tx.CreateComment(ctx, &comment); err != nil {
			return err
		}
		if err := s.counters.Increment(ctx, tx, store.EntryComments, entryID, 1); err != nil {
			return err
		}

		summary := utils.PlainText(utils.RenderMarkdown(content), 80)
		notif := models.Notification{
			UserID:    entry.UserID,
			ActorID:   utils.UintPtr(actorID),
			Type:      models.NotificationTypeComment,
			Title:     "New comment on \"" + entry.Title + "\"",
			Message:   summary,
			ContestID: utils.UintPtr(entry.ContestID),
			EntryID:   utils.UintPtr(entryID),
			CommentID: utils.UintPtr(comment.ID),
		}
		if parent != nil {
			notif.UserID = parent.UserID
			notif.Type = models.NotificationTypeReply
			notif.Title = "New reply to your comment"
		}
		return s.notifier.Notify(ctx, tx, notif)
	})
	if err != nil {
		return models.Comment{}, err
	}

	comment.ContentHTML = utils.RenderMarkdown(comment.Content)
	return comment, nil
}

// List 返回作品下的评论（时间正序），附带渲染后的 HTML
func (s *CommentService) List(ctx context.Context, entryID uint) ([]models.Comment, error) {
	if _, err := approvedEntry(ctx, s.store, entryID); err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, entryID)
	if err != nil {
		return nil, err
	}
	for i := range comments {
		comments[i].ContentHTML = utils.RenderMarkdown(comments[i].Content)
	}
	return comments, nil
}
