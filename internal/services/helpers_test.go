package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"artarena/internal/models"
	"artarena/internal/store"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *fixedClock { return &fixedClock{now: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var (
	t0       = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	dayStart = t0.Add(-24 * time.Hour)
	dayEnd   = t0.Add(24 * time.Hour)
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *store.MemoryStore
	clock *fixedClock
	svc   *Services
	admin models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	clock := newClock(t0)
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: st,
		clock: clock,
		svc:   New(st, clock, nil, Options{}),
	}
	f.admin = models.User{Username: "admin", Role: models.RoleAdmin}
	require.NoError(t, st.CreateUser(f.ctx, &f.admin))
	return f
}

func (f *fixture) user(name string) models.User {
	f.t.Helper()
	u := models.User{Username: name}
	require.NoError(f.t, f.store.CreateUser(f.ctx, &u))
	return u
}

func (f *fixture) reload(u models.User) models.User {
	f.t.Helper()
	got, err := f.store.GetUser(f.ctx, u.ID)
	require.NoError(f.t, err)
	return got
}

// activeContest starts a day before t0 and ends a day after.
func (f *fixture) activeContest() models.Contest {
	f.t.Helper()
	c := models.Contest{
		Title:     "Spring sketch",
		Category:  models.CategoryPhotography,
		StartDate: dayStart,
		EndDate:   dayEnd,
	}
	require.NoError(f.t, f.store.CreateContest(f.ctx, &c))
	return c
}

// endedContest already ended at t0.
func (f *fixture) endedContest() models.Contest {
	f.t.Helper()
	c := models.Contest{
		Title:     "Winter ink",
		Category:  models.CategoryPhotography,
		StartDate: t0.Add(-72 * time.Hour),
		EndDate:   t0.Add(-time.Hour),
	}
	require.NoError(f.t, f.store.CreateContest(f.ctx, &c))
	return c
}

// entry inserts an approved entry directly with the given counters.
func (f *fixture) entry(contest models.Contest, owner models.User, reactions int, created time.Time) models.Entry {
	f.t.Helper()
	e := models.Entry{
		ContestID: contest.ID,
		UserID:    owner.ID,
		Title:     fmt.Sprintf("entry by %s", owner.Username),
		Phase1URL: "https://cdn.example/p1.png",
		Status:    models.EntryApproved,
		CreatedAt: created,
	}
	require.NoError(f.t, f.store.CreateEntry(f.ctx, &e))
	if reactions > 0 {
		f.store.SetEntryCounts(e.ID, reactions, 0)
		e.ReactionsCount = reactions
	}
	return e
}

func (f *fixture) reloadEntry(e models.Entry) models.Entry {
	f.t.Helper()
	got, err := f.store.GetEntry(f.ctx, e.ID)
	require.NoError(f.t, err)
	return got
}
