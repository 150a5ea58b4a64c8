package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"artarena/internal/models"
	"artarena/internal/store"
	"artarena/internal/utils"
)

type SubmitEntryInput struct {
	ContestID   uint
	Title       string
	Description string
	PhaseURLs   [models.MaxPhases]string
}

type EntryService struct {
	store    store.Store
	counters *CounterService
	notifier *Notifier
	clock    Clock
	logger   *slog.Logger
}

func NewEntryService(s store.Store, counters *CounterService, notifier *Notifier, clock Clock, logger *slog.Logger) *EntryService {
	return &EntryService{
		store:    s,
		counters: counters,
		notifier: notifier,
		clock:    resolveClock(clock),
		logger:   ResolveLogger(logger),
	}
}

// ValidatePhases checks that the category's required phases are present and
// that no phase follows a missing one.
func ValidatePhases(category models.ContestCategory, phases [models.MaxPhases]string) error {
	required := category.RequiredPhases()
	if required == 0 {
		return invalid("unknown category %q", category)
	}
	gap := false
	for i, raw := range phases {
		p := strings.TrimSpace(raw)
		if p == "" {
			if i < required {
				return invalid("phase %d is required for %s", i+1, category)
			}
			gap = true
			continue
		}
		if gap {
			return invalid("phase %d given without phase %d", i+1, i)
		}
		u, err := url.Parse(p)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("phase %d is not a valid URL", i+1)
		}
	}
	return nil
}

// Submit 投稿只在比赛进行中开放，每人每场一次，提交后待审核
func (s *EntryService) Submit(ctx context.Context, actorID uint, in SubmitEntryInput) (models.Entry, error) {
	if actorID == 0 {
		return models.Entry{}, ErrNotAuthorized
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || len([]rune(title)) > 120 {
		return models.Entry{}, invalid("title must be 1-120 characters")
	}

	contest, err := s.store.GetContest(ctx, in.ContestID)
	if err != nil {
		return models.Entry{}, translate(err)
	}
	now := s.clock.Now()
	if ContestStatus(contest, now) != models.StatusActive {
		return models.Entry{}, ErrContestClosed
	}

	entry := models.Entry{
		ContestID:   contest.ID,
		UserID:      actorID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Phase1URL:   strings.TrimSpace(in.PhaseURLs[0]),
		Phase2URL:   strings.TrimSpace(in.PhaseURLs[1]),
		Phase3URL:   strings.TrimSpace(in.PhaseURLs[2]),
		Phase4URL:   strings.TrimSpace(in.PhaseURLs[3]),
		Status:      models.EntryPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := ValidatePhases(contest.Category, entry.Phases()); err != nil {
		return models.Entry{}, err
	}
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateEntry(ctx, &entry); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrDuplicateEntry
			}
			return err
		}
		if err := s.counters.Increment(ctx, tx, store.ContestEntries, contest.ID, 1); err != nil {
			return err
		}
		return s.counters.Increment(ctx, tx, store.UserEntries, actorID, 1)
	})
	if err != nil {
		return models.Entry{}, err
	}

	s.logger.Info("entry submitted",
		"event", "entry_submitted",
		"module", "entries",
		"entry_id", entry.ID,
		"contest_id", contest.ID,
		"user_id", actorID,
	)
	return entry, nil
}

// Review 审核待审核作品，驳回必须给出理由。每个作品只能审核一次。
func (s *EntryService) Review(ctx context.Context, reviewer *models.User, entryID uint, approve bool, reason string) (models.Entry, error) {
	if !reviewer.IsAdmin() {
		return models.Entry{}, ErrNotAuthorized
	}
	reason = strings.TrimSpace(reason)
	status := models.EntryApproved
	if !approve {
		status = models.EntryRejected
		if reason == "" {
			return models.Entry{}, invalid("rejection reason is required")
		}
	} else {
		reason = ""
	}

	now := s.clock.Now()
	var entry models.Entry
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.ReviewEntry(ctx, entryID, status, reason, now); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrAlreadyReviewed
			}
			return translate(err)
		}
		var err error
		entry, err = tx.GetEntry(ctx, entryID)
		if err != nil {
			return translate(err)
		}

		msg := fmt.Sprintf("Your entry \"%s\" was approved.", entry.Title)
		if status == models.EntryRejected {
			msg = fmt.Sprintf("Your entry \"%s\" was rejected: %s", entry.Title, reason)
		}
		return s.notifier.Notify(ctx, tx, models.Notification{
			UserID:    entry.UserID,
			ActorID:   utils.UintPtr(reviewer.ID),
			Type:      models.NotificationTypeSystem,
			Title:     "Entry " + string(status),
			Message:   msg,
			ContestID: utils.UintPtr(entry.ContestID),
			EntryID:   utils.UintPtr(entry.ID),
		})
	})
	if err != nil {
		return models.Entry{}, err
	}

	s.logger.Info("entry reviewed",
		"event", "entry_reviewed",
		"module", "entries",
		"entry_id", entryID,
		"status", string(status),
		"reviewer_id", reviewer.ID,
	)
	return entry, nil
}

func (s *EntryService) Get(ctx context.Context, id uint) (models.Entry, error) {
	entry, err := s.store.GetEntry(ctx, id)
	return entry, translate(err)
}

// ListApproved 按点评数排名返回比赛中已通过的作品
func (s *EntryService) ListApproved(ctx context.Context, contestID uint) ([]models.Entry, error) {
	if _, err := s.store.GetContest(ctx, contestID); err != nil {
		return nil, translate(err)
	}
	entries, err := s.store.ListEntries(ctx, contestID, models.EntryApproved)
	if err != nil {
		return nil, err
	}
	return RankEntries(entries), nil
}

// ListForReview 管理员查看比赛下的作品，status 为空时返回全部状态
func (s *EntryService) ListForReview(ctx context.Context, admin *models.User, contestID uint, status models.EntryStatus) ([]models.Entry, error) {
	if !admin.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	switch status {
	case "", models.EntryDraft, models.EntryPending, models.EntryApproved, models.EntryRejected:
	default:
		return nil, invalid("unknown entry status %q", status)
	}
	if _, err := s.store.GetContest(ctx, contestID); err != nil {
		return nil, translate(err)
	}
	entries, err := s.store.ListEntries(ctx, contestID, status)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	return entries, nil
}

func (s *EntryService) ListByUser(ctx context.Context, userID uint) ([]models.Entry, error) {
	entries, err := s.store.ListEntriesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	return entries, nil
}
