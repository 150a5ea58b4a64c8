// Package store holds the typed repositories the contest services are built
// on. Every cross-request invariant (unique reactions, counter arithmetic,
// the finalized_at compare-and-set) is enforced here, at the storage layer,
// so that several server instances can run side by side.
package store

import (
	"context"
	"errors"
	"time"

	"artarena/internal/models"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrConflict         = errors.New("record conflict")
	ErrAlreadyFinalized = errors.New("contest already finalized")
)

// Counter names one denormalized integer column. Only the values declared
// below exist, so call sites cannot address an arbitrary column.
type Counter struct {
	table  string
	column string
}

func (c Counter) Table() string  { return c.table }
func (c Counter) Column() string { return c.column }
func (c Counter) String() string { return c.table + "." + c.column }

var (
	EntryReactions        = Counter{"entries", "reactions_count"}
	EntryComments         = Counter{"entries", "comments_count"}
	ContestEntries        = Counter{"contests", "entries_count"}
	UserEntries           = Counter{"users", "entries_count"}
	UserWins              = Counter{"users", "wins_count"}
	UserReactionsReceived = Counter{"users", "total_reactions_received"}
	UserFollowers         = Counter{"users", "followers_count"}
	UserFollowing         = Counter{"users", "following_count"}
)

// FinalizeMark is written by the single compare-and-set that closes a contest.
type FinalizeMark struct {
	FinalizedAt    time.Time
	WinnerEntryIDs [3]*uint
}

type ContestRepository interface {
	CreateContest(ctx context.Context, contest *models.Contest) error
	// UpdateContest rewrites the editable fields; it fails with
	// ErrAlreadyFinalized once finalized_at is set.
	UpdateContest(ctx context.Context, contest *models.Contest) error
	// DeleteContest removes a contest that has no entries and is not
	// finalized. Entries give ErrConflict, a finalized contest
	// ErrAlreadyFinalized.
	DeleteContest(ctx context.Context, id uint) error
	GetContest(ctx context.Context, id uint) (models.Contest, error)
	// LockContest reads the contest holding a row lock until the surrounding
	// transaction ends.
	LockContest(ctx context.Context, id uint) (models.Contest, error)
	ListContests(ctx context.Context) ([]models.Contest, error)
	ListEndedUnfinalized(ctx context.Context, now time.Time) ([]models.Contest, error)
	// MarkFinalized sets finalized_at only if it is still NULL. A lost race
	// returns ErrAlreadyFinalized.
	MarkFinalized(ctx context.Context, id uint, mark FinalizeMark) error
}

type EntryRepository interface {
	// CreateEntry returns ErrConflict when the user already has an entry in
	// the contest.
	CreateEntry(ctx context.Context, entry *models.Entry) error
	GetEntry(ctx context.Context, id uint) (models.Entry, error)
	// ListEntries orders by reactions_count desc, created_at asc, id asc.
	// An empty status lists every entry of the contest.
	ListEntries(ctx context.Context, contestID uint, status models.EntryStatus) ([]models.Entry, error)
	ListEntriesByUser(ctx context.Context, userID uint) ([]models.Entry, error)
	// ReviewEntry moves a pending entry to approved or rejected. Any other
	// current status returns ErrConflict.
	ReviewEntry(ctx context.Context, id uint, status models.EntryStatus, reason string, at time.Time) error
}

type ReactionRepository interface {
	GetReaction(ctx context.Context, entryID, userID uint) (models.Reaction, error)
	// InsertReaction reports false when a row for (entry_id, user_id) already
	// exists; the existing row is left untouched.
	InsertReaction(ctx context.Context, reaction *models.Reaction) (bool, error)
	UpdateReactionType(ctx context.Context, entryID, userID uint, reactionType models.ReactionType, at time.Time) error
	DeleteReaction(ctx context.Context, entryID, userID uint) (bool, error)
	CountReactions(ctx context.Context, entryID uint) (int64, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id uint) (models.Comment, error)
	ListComments(ctx context.Context, entryID uint) ([]models.Comment, error)
}

type WinnerRepository interface {
	DeleteWinners(ctx context.Context, contestID uint) error
	CreateWinner(ctx context.Context, winner *models.ContestWinner) error
	// ListWinners orders by placement.
	ListWinners(ctx context.Context, contestID uint) ([]models.ContestWinner, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (models.User, error)
	// AddRewards atomically adds points and xp and returns the updated row.
	AddRewards(ctx context.Context, userID uint, points, xp int) (models.User, error)
	SetLevel(ctx context.Context, userID uint, level int) error
}

type FollowRepository interface {
	InsertFollow(ctx context.Context, follow *models.Follow) (bool, error)
	DeleteFollow(ctx context.Context, followerID, followingID uint) (bool, error)
}

type LedgerRepository interface {
	CreatePointLog(ctx context.Context, entry *models.PointLog) error
	ListPointLogs(ctx context.Context, userID uint) ([]models.PointLog, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID uint) (int64, error)
	// MarkNotificationsRead marks the given notifications of userID as read;
	// no ids means all of them.
	MarkNotificationsRead(ctx context.Context, userID uint, ids []uint) (int64, error)
}

type CounterRepository interface {
	// Increment applies delta in a single atomic statement. A decrement that
	// would go below zero leaves the counter at zero and reports clamped.
	Increment(ctx context.Context, counter Counter, id uint, delta int) (clamped bool, err error)
}

// Store is the full entity store. Transaction runs fn against a Store bound
// to one storage transaction; fn returning an error rolls everything back.
type Store interface {
	ContestRepository
	EntryRepository
	ReactionRepository
	CommentRepository
	WinnerRepository
	UserRepository
	FollowRepository
	LedgerRepository
	CounterRepository

	Transaction(ctx context.Context, fn func(tx Store) error) error
}
