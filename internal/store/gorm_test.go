package store_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"artarena/internal/db"
	"artarena/internal/models"
	"artarena/internal/store"
)

// These tests need a disposable Postgres database, e.g.
// TEST_DATABASE_URL="host=localhost user=postgres password=postgres dbname=artarena_test sslmode=disable"
func openTestStore(t *testing.T) (*store.GormStore, *gorm.DB) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres integration tests")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, gdb.Migrator().DropTable(
		&models.Notification{}, &models.PointLog{}, &models.Follow{}, &models.ContestWinner{},
		&models.Comment{}, &models.Reaction{}, &models.Entry{}, &models.Contest{}, &models.User{},
	))
	require.NoError(t, db.Migrate(gdb, slog.New(slog.DiscardHandler)))
	return store.NewGormStore(gdb, nil), gdb
}

func seedPostgres(t *testing.T, s *store.GormStore) (models.Contest, models.Entry, models.User) {
	t.Helper()
	ctx := context.Background()
	owner := models.User{Username: "owner"}
	require.NoError(t, s.CreateUser(ctx, &owner))
	c := models.Contest{
		Title:     "pg",
		Category:  models.CategoryPhotography,
		StartDate: time.Now().Add(-48 * time.Hour),
		EndDate:   time.Now().Add(-time.Hour),
	}
	require.NoError(t, s.CreateContest(ctx, &c))
	e := models.Entry{ContestID: c.ID, UserID: owner.ID, Phase1URL: "https://x/a.jpg", Status: models.EntryApproved}
	require.NoError(t, s.CreateEntry(ctx, &e))
	return c, e, owner
}

func TestGorm_ConcurrentReactionInsertsCountOnce(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	_, e, _ := seedPostgres(t, s)
	fan := models.User{Username: "fan"}
	require.NoError(t, s.CreateUser(ctx, &fan))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Transaction(ctx, func(tx store.Store) error {
				inserted, err := tx.InsertReaction(ctx, &models.Reaction{EntryID: e.ID, UserID: fan.ID, Type: models.ReactionLike})
				if err != nil || !inserted {
					return err
				}
				mu.Lock()
				wins++
				mu.Unlock()
				_, err = tx.Increment(ctx, store.EntryReactions, e.ID, 1)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	got, err := s.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReactionsCount)
	n, err := s.CountReactions(ctx, e.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestGorm_IncrementClampsAtZero(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	_, e, _ := seedPostgres(t, s)

	clamped, err := s.Increment(ctx, store.EntryComments, e.ID, -1)
	require.NoError(t, err)
	assert.True(t, clamped)
	got, err := s.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Zero(t, got.CommentsCount)

	_, err = s.Increment(ctx, store.EntryComments, 987654, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGorm_MarkFinalizedCompareAndSet(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	c, e, _ := seedPostgres(t, s)

	at := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, s.Transaction(ctx, func(tx store.Store) error {
		locked, err := tx.LockContest(ctx, c.ID)
		require.NoError(t, err)
		assert.Nil(t, locked.FinalizedAt)
		return tx.MarkFinalized(ctx, c.ID, store.FinalizeMark{FinalizedAt: at, WinnerEntryIDs: [3]*uint{&e.ID}})
	}))

	err := s.MarkFinalized(ctx, c.ID, store.FinalizeMark{FinalizedAt: at.Add(time.Hour)})
	assert.ErrorIs(t, err, store.ErrAlreadyFinalized)

	got, err := s.GetContest(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FinalizedAt)
	assert.True(t, got.FinalizedAt.Equal(at))
	assert.True(t, got.PrizePoolDistributed)
	require.NotNil(t, got.Winner1stEntryID)
	assert.Equal(t, e.ID, *got.Winner1stEntryID)

	ended, err := s.ListEndedUnfinalized(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, ended)
}

func TestGorm_DuplicateEntryIsConflict(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	c, _, owner := seedPostgres(t, s)

	err := s.CreateEntry(ctx, &models.Entry{ContestID: c.ID, UserID: owner.ID, Phase1URL: "https://x/b.jpg"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestGorm_DeleteContestGuards(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	withEntry, _, _ := seedPostgres(t, s)

	assert.ErrorIs(t, s.DeleteContest(ctx, withEntry.ID), store.ErrConflict)

	empty := models.Contest{Title: "empty", Category: models.CategoryArt, StartDate: time.Now(), EndDate: time.Now().Add(time.Hour)}
	require.NoError(t, s.CreateContest(ctx, &empty))
	require.NoError(t, s.DeleteContest(ctx, empty.ID))
	_, err := s.GetContest(ctx, empty.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteContest(ctx, empty.ID), store.ErrNotFound)

	closed := models.Contest{Title: "closed", Category: models.CategoryArt, StartDate: time.Now(), EndDate: time.Now().Add(time.Hour)}
	require.NoError(t, s.CreateContest(ctx, &closed))
	require.NoError(t, s.MarkFinalized(ctx, closed.ID, store.FinalizeMark{FinalizedAt: time.Now().UTC()}))
	assert.ErrorIs(t, s.DeleteContest(ctx, closed.ID), store.ErrAlreadyFinalized)
}
