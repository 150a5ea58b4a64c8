package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"artarena/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB, logger *slog.Logger) *GormStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GormStore{db: db, logger: logger}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, logger: s.logger})
	})
}

// ---- contests ----

func (s *GormStore) CreateContest(ctx context.Context, contest *models.Contest) error {
	if err := s.db.WithContext(ctx).Create(contest).Error; err != nil {
		return s.logError("store_create_contest_failed", err, "title", contest.Title)
	}
	return nil
}

func (s *GormStore) UpdateContest(ctx context.Context, contest *models.Contest) error {
	res := s.db.WithContext(ctx).Model(&models.Contest{}).
		Where("id = ? AND finalized_at IS NULL", contest.ID).
		Updates(map[string]any{
			"title":         contest.Title,
			"description":   contest.Description,
			"category":      contest.Category,
			"thumbnail_url": contest.ThumbnailURL,
			"start_date":    contest.StartDate,
			"end_date":      contest.EndDate,
			"prize_pool":    contest.PrizePool,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return s.logError("store_update_contest_failed", res.Error, "contest_id", contest.ID)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetContest(ctx, contest.ID); err != nil {
			return err
		}
		return ErrAlreadyFinalized
	}
	return nil
}

func (s *GormStore) DeleteContest(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND finalized_at IS NULL", id).
		Where("NOT EXISTS (SELECT 1 FROM entries WHERE entries.contest_id = contests.id)").
		Delete(&models.Contest{})
	if res.Error != nil {
		return s.logError("store_delete_contest_failed", res.Error, "contest_id", id)
	}
	if res.RowsAffected == 0 {
		contest, err := s.GetContest(ctx, id)
		if err != nil {
			return err
		}
		if contest.FinalizedAt != nil {
			return ErrAlreadyFinalized
		}
		return ErrConflict
	}
	return nil
}

func (s *GormStore) GetContest(ctx context.Context, id uint) (models.Contest, error) {
	var contest models.Contest
	if err := s.db.WithContext(ctx).First(&contest, id).Error; err != nil {
		return models.Contest{}, s.notFoundOr("store_get_contest_failed", err, "contest_id", id)
	}
	return contest, nil
}

func (s *GormStore) LockContest(ctx context.Context, id uint) (models.Contest, error) {
	var contest models.Contest
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&contest, id).Error
	if err != nil {
		return models.Contest{}, s.notFoundOr("store_lock_contest_failed", err, "contest_id", id)
	}
	return contest, nil
}

func (s *GormStore) ListContests(ctx context.Context) ([]models.Contest, error) {
	var contests []models.Contest
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&contests).Error; err != nil {
		return nil, s.logError("store_list_contests_failed", err)
	}
	return contests, nil
}

func (s *GormStore) ListEndedUnfinalized(ctx context.Context, now time.Time) ([]models.Contest, error) {
	var contests []models.Contest
	err := s.db.WithContext(ctx).
		Where("finalized_at IS NULL AND end_date < ?", now).
		Order("end_date ASC").
		Find(&contests).Error
	if err != nil {
		return nil, s.logError("store_list_ended_contests_failed", err)
	}
	return contests, nil
}

func (s *GormStore) MarkFinalized(ctx context.Context, id uint, mark FinalizeMark) error {
	res := s.db.WithContext(ctx).Model(&models.Contest{}).
		Where("id = ? AND finalized_at IS NULL", id).
		UpdateColumns(map[string]any{
			"finalized_at":           mark.FinalizedAt,
			"winner_1st_entry_id":    mark.WinnerEntryIDs[0],
			"winner_2nd_entry_id":    mark.WinnerEntryIDs[1],
			"winner_3rd_entry_id":    mark.WinnerEntryIDs[2],
			"prize_pool_distributed": true,
			"updated_at":             mark.FinalizedAt,
		})
	if res.Error != nil {
		return s.logError("store_mark_finalized_failed", res.Error, "contest_id", id)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetContest(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyFinalized
	}
	return nil
}

// ---- entries ----

func (s *GormStore) CreateEntry(ctx context.Context, entry *models.Entry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return s.logError("store_create_entry_failed", err,
			"contest_id", entry.ContestID,
			"user_id", entry.UserID,
		)
	}
	return nil
}

func (s *GormStore) GetEntry(ctx context.Context, id uint) (models.Entry, error) {
	var entry models.Entry
	if err := s.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return models.Entry{}, s.notFoundOr("store_get_entry_failed", err, "entry_id", id)
	}
	return entry, nil
}

func (s *GormStore) ListEntries(ctx context.Context, contestID uint, status models.EntryStatus) ([]models.Entry, error) {
	tx := s.db.WithContext(ctx).Where("contest_id = ?", contestID)
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	var entries []models.Entry
	if err := tx.Order("reactions_count DESC, created_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, s.logError("store_list_entries_failed", err, "contest_id", contestID)
	}
	return entries, nil
}

func (s *GormStore) ListEntriesByUser(ctx context.Context, userID uint) ([]models.Entry, error) {
	var entries []models.Entry
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, s.logError("store_list_user_entries_failed", err, "user_id", userID)
	}
	return entries, nil
}

func (s *GormStore) ReviewEntry(ctx context.Context, id uint, status models.EntryStatus, reason string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Entry{}).
		Where("id = ? AND status = ?", id, models.EntryPending).
		UpdateColumns(map[string]any{
			"status":           status,
			"rejection_reason": reason,
			"updated_at":       at,
		})
	if res.Error != nil {
		return s.logError("store_review_entry_failed", res.Error, "entry_id", id)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetEntry(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// ---- reactions ----

func (s *GormStore) GetReaction(ctx context.Context, entryID, userID uint) (models.Reaction, error) {
	var reaction models.Reaction
	err := s.db.WithContext(ctx).
		Where("entry_id = ? AND user_id = ?", entryID, userID).
		First(&reaction).Error
	if err != nil {
		return models.Reaction{}, s.notFoundOr("store_get_reaction_failed", err,
			"entry_id", entryID,
			"user_id", userID,
		)
	}
	return reaction, nil
}

func (s *GormStore) InsertReaction(ctx context.Context, reaction *models.Reaction) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(reaction)
	if res.Error != nil {
		return false, s.logError("store_insert_reaction_failed", res.Error,
			"entry_id", reaction.EntryID,
			"user_id", reaction.UserID,
		)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) UpdateReactionType(ctx context.Context, entryID, userID uint, reactionType models.ReactionType, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Reaction{}).
		Where("entry_id = ? AND user_id = ?", entryID, userID).
		UpdateColumns(map[string]any{"type": reactionType, "updated_at": at})
	if res.Error != nil {
		return s.logError("store_update_reaction_failed", res.Error,
			"entry_id", entryID,
			"user_id", userID,
		)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteReaction(ctx context.Context, entryID, userID uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("entry_id = ? AND user_id = ?", entryID, userID).
		Delete(&models.Reaction{})
	if res.Error != nil {
		return false, s.logError("store_delete_reaction_failed", res.Error,
			"entry_id", entryID,
			"user_id", userID,
		)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) CountReactions(ctx context.Context, entryID uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Reaction{}).Where("entry_id = ?", entryID).Count(&count).Error; err != nil {
		return 0, s.logError("store_count_reactions_failed", err, "entry_id", entryID)
	}
	return count, nil
}

// ---- comments ----

func (s *GormStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return s.logError("store_create_comment_failed", err, "entry_id", comment.EntryID)
	}
	return nil
}

func (s *GormStore) GetComment(ctx context.Context, id uint) (models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return models.Comment{}, s.notFoundOr("store_get_comment_failed", err, "comment_id", id)
	}
	return comment, nil
}

func (s *GormStore) ListComments(ctx context.Context, entryID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, s.logError("store_list_comments_failed", err, "entry_id", entryID)
	}
	return comments, nil
}

// ---- winners ----

func (s *GormStore) DeleteWinners(ctx context.Context, contestID uint) error {
	err := s.db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Delete(&models.ContestWinner{}).Error
	if err != nil {
		return s.logError("store_delete_winners_failed", err, "contest_id", contestID)
	}
	return nil
}

func (s *GormStore) CreateWinner(ctx context.Context, winner *models.ContestWinner) error {
	if err := s.db.WithContext(ctx).Create(winner).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return s.logError("store_create_winner_failed", err,
			"contest_id", winner.ContestID,
			"placement", winner.Placement,
		)
	}
	return nil
}

func (s *GormStore) ListWinners(ctx context.Context, contestID uint) ([]models.ContestWinner, error) {
	var winners []models.ContestWinner
	err := s.db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Order("placement ASC").
		Find(&winners).Error
	if err != nil {
		return nil, s.logError("store_list_winners_failed", err, "contest_id", contestID)
	}
	return winners, nil
}

// ---- users ----

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return s.logError("store_create_user_failed", err, "username", user.Username)
	}
	return nil
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, s.notFoundOr("store_get_user_failed", err, "user_id", id)
	}
	return user, nil
}

func (s *GormStore) AddRewards(ctx context.Context, userID uint, points, xp int) (models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]any{
			"points_balance": gorm.Expr("points_balance + ?", points),
			"xp":             gorm.Expr("xp + ?", xp),
		})
	if res.Error != nil {
		return models.User{}, s.logError("store_add_rewards_failed", res.Error, "user_id", userID)
	}
	if res.RowsAffected == 0 {
		return models.User{}, ErrNotFound
	}
	return s.GetUser(ctx, userID)
}

func (s *GormStore) SetLevel(ctx context.Context, userID uint, level int) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("level", level).Error
	if err != nil {
		return s.logError("store_set_level_failed", err, "user_id", userID)
	}
	return nil
}

// ---- follows ----

func (s *GormStore) InsertFollow(ctx context.Context, follow *models.Follow) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "following_id"}},
			DoNothing: true,
		}).
		Create(follow)
	if res.Error != nil {
		return false, s.logError("store_insert_follow_failed", res.Error,
			"follower_id", follow.FollowerID,
			"following_id", follow.FollowingID,
		)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) DeleteFollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, s.logError("store_delete_follow_failed", res.Error,
			"follower_id", followerID,
			"following_id", followingID,
		)
	}
	return res.RowsAffected > 0, nil
}

// ---- ledger ----

func (s *GormStore) CreatePointLog(ctx context.Context, entry *models.PointLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return s.logError("store_create_point_log_failed", err, "user_id", entry.UserID)
	}
	return nil
}

func (s *GormStore) ListPointLogs(ctx context.Context, userID uint) ([]models.PointLog, error) {
	var logs []models.PointLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(100).
		Find(&logs).Error
	if err != nil {
		return nil, s.logError("store_list_point_logs_failed", err, "user_id", userID)
	}
	return logs, nil
}

func (s *GormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return s.logError("store_create_notification_failed", err, "user_id", n.UserID)
	}
	return nil
}

func (s *GormStore) ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, s.logError("store_list_notifications_failed", err, "user_id", userID)
	}
	return notifications, nil
}

func (s *GormStore) CountUnreadNotifications(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, s.logError("store_count_unread_failed", err, "user_id", userID)
	}
	return count, nil
}

func (s *GormStore) MarkNotificationsRead(ctx context.Context, userID uint, ids []uint) (int64, error) {
	tx := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false)
	if len(ids) > 0 {
		tx = tx.Where("id IN ?", ids)
	}
	res := tx.Update("is_read", true)
	if res.Error != nil {
		return 0, s.logError("store_mark_read_failed", res.Error, "user_id", userID)
	}
	return res.RowsAffected, nil
}

// ---- counters ----

func (s *GormStore) Increment(ctx context.Context, counter Counter, id uint, delta int) (bool, error) {
	col := counter.Column()
	tx := s.db.WithContext(ctx).Table(counter.Table()).Where("id = ?", id)
	if delta < 0 {
		tx = tx.Where(col+" >= ?", -delta)
	}
	res := tx.UpdateColumn(col, gorm.Expr(col+" + ?", delta))
	if res.Error != nil {
		return false, s.logError("store_increment_failed", res.Error, "counter", counter.String(), "id", id)
	}
	if res.RowsAffected == 1 {
		return false, nil
	}
	if delta >= 0 {
		return false, ErrNotFound
	}

	// 扣减会变成负数：单条语句钳到 0，期间并发的加法不会丢
	res = s.db.WithContext(ctx).Table(counter.Table()).
		Where("id = ?", id).
		UpdateColumn(col, gorm.Expr("GREATEST("+col+" + ?, 0)", delta))
	if res.Error != nil {
		return false, s.logError("store_increment_clamp_failed", res.Error, "counter", counter.String(), "id", id)
	}
	if res.RowsAffected == 0 {
		return false, ErrNotFound
	}
	return true, nil
}

func (s *GormStore) notFoundOr(event string, err error, attrs ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return s.logError(event, err, attrs...)
}

func (s *GormStore) logError(event string, err error, attrs ...any) error {
	fields := append([]any{
		"event", event,
		"module", "store",
		"error", err.Error(),
	}, attrs...)
	s.logger.Error("store operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
