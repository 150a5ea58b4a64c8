package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artarena/internal/models"
	"artarena/internal/store"
)

func reactionPtr(t models.ReactionType) *models.ReactionType { return &t }

// region set / change / clear

func TestReact_FirstReactionIncrements(t *testing.T) {
	f := newFixture(t)
	owner, fan := f.user("owner"), f.user("fan")
	e := f.entry(f.activeContest(), owner, 0, t0)

	res, err := f.svc.Reactions.React(f.ctx, fan.ID, e.ID, fan.ID, reactionPtr(models.ReactionFire))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.ReactionsCount)
	assert.Equal(t, 1, f.reload(owner).TotalReactionsReceived)

	notes, err := f.store.ListNotifications(f.ctx, owner.ID, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationTypeReaction, notes[0].Type)
}

func TestReact_SameTypeTwiceIsNoop(t *testing.T) {
	f := newFixture(t)
	owner, fan := f.user("owner"), f.user("fan")
	e := f.entry(f.activeContest(), owner, 0, t0)

	_, err := f.svc.Reactions.SetReaction(f.ctx, fan.ID, e.ID, fan.ID, models.ReactionLike)
	require.NoError(t, err)
	res, err := f.svc.Reactions.SetReaction(f.ctx, fan.ID, e.ID, fan.ID, models.ReactionLike)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, 1, f.reloadEntry(e).ReactionsCount)
}

func TestReact_ChangeTypeKeepsCount(t *testing.T) {
	f := newFixture(t)
	owner, fan := f.user("owner"), f.user("fan")
	e := f.entry(f.activeContest(), owner, 0, t0)

	_, err := f.svc.Reactions.SetReaction(f.ctx, fan.ID, e.ID, fan.ID, models.ReactionLike)
	require.NoError(t, err)
	res, err := f.svc.Reactions.SetReaction(f.ctx, fan.ID, e.ID, fan.ID, models.ReactionStar)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.ReactionsCount)

	current, err := f.svc.Reactions.Current(f.ctx, e.ID, fan.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, models.ReactionStar, *current)
}

func TestReact_ClearDecrementsOnce(t *testing.T) {
	f := newFixture(t)
	owner, fan := f.user("owner"), f.user("fan")
	e := f.entry(f.activeContest(), owner, 0, t0)

	_, err := f.svc.Reactions.SetReaction(f.ctx, fan.ID, e.ID, fan.ID, models.ReactionClap)
	require.NoError(t, err)

	res, err := f.svc.Reactions.React(f.ctx, fan.ID, e.ID, fan.ID, nil)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 0, res.ReactionsCount)

	res, err = f.svc.Reactions.ClearReaction(f.ctx, fan.ID, e.ID, fan.ID)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, 0, f.reloadEntry(e).ReactionsCount)
	assert.Equal(t, 0, f.reload(owner).TotalReactionsReceived)

	current, err := f.svc.Reactions.Current(f.ctx, e.ID, fan.ID)
	require.NoError(t, err)
	assert.Nil(t, current)
}

// endregion

// region rejections

func TestReact_Rejections(t *testing.T) {
	f := newFixture(t)
	owner, fan := f.user("owner"), f.user("fan")
	c := f.activeContest()
	e := f.entry(c, owner, 0, t0)

	_, err := f.svc.Reactions.SetReaction(f.ctx, owner.ID, e.ID, fan.ID, models.ReactionLike)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = f.svc.Reactions.SetReaction(f.ctx, 0, e.ID, 0, models.ReactionLike)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = f.svc.Reactions.SetReaction(f.ctx, fan.ID, e.ID, fan.ID, "meh")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Reactions.SetReaction(f.ctx, fan.ID, 999, fan.ID, models.ReactionLike)
	assert.ErrorIs(t, err, ErrNotFound)

	pending := models.Entry{ContestID: c.ID, UserID: fan.ID, Phase1URL: "https://x/p.png", Status: models.EntryPending}
	require.NoError(t, f.store.CreateEntry(f.ctx, &pending))
	_, err = f.svc.Reactions.SetReaction(f.ctx, owner.ID, pending.ID, owner.ID, models.ReactionLike)
	assert.ErrorIs(t, err, ErrNotFound)
}

// endregion

func TestReact_CountMatchesHoldersUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	owner := f.user("owner")
	e := f.entry(f.activeContest(), owner, 0, t0)

	fans := make([]models.User, 20)
	for i := range fans {
		fans[i] = f.user("fan" + string(rune('a'+i)))
	}

	types := []models.ReactionType{models.ReactionLike, models.ReactionLove, models.ReactionFire}
	var wg sync.WaitGroup
	for i, fan := range fans {
		for j := 0; j < 3; j++ {
			wg.Add(1)
			go func(fan models.User, typ models.ReactionType, clear bool) {
				defer wg.Done()
				var p *models.ReactionType
				if !clear {
					p = &typ
				}
				_, err := f.svc.Reactions.React(f.ctx, fan.ID, e.ID, fan.ID, p)
				assert.NoError(t, err)
			}(fan, types[j], i%4 == 0 && j == 2)
		}
	}
	wg.Wait()

	holders, err := f.store.CountReactions(f.ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int(holders), f.reloadEntry(e).ReactionsCount)
	assert.Equal(t, int(holders), f.reload(owner).TotalReactionsReceived)
}

// clearingStore simulates another request clearing the reaction right after
// the conflicting insert and before it is read back.
type clearingStore struct {
	*store.MemoryStore
	once sync.Once
}

func (s *clearingStore) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return s.MemoryStore.Transaction(ctx, func(tx store.Store) error {
		return fn(&clearingTx{Store: tx, parent: s})
	})
}

type clearingTx struct {
	store.Store
	parent *clearingStore
}

func (t *clearingTx) InsertReaction(ctx context.Context, r *models.Reaction) (bool, error) {
	inserted, err := t.Store.InsertReaction(ctx, r)
	if err != nil || inserted {
		return inserted, err
	}
	var clearErr error
	t.parent.once.Do(func() {
		entry, err := t.Store.GetEntry(ctx, r.EntryID)
		if err != nil {
			clearErr = err
			return
		}
		if _, err := t.Store.DeleteReaction(ctx, r.EntryID, r.UserID); err != nil {
			clearErr = err
			return
		}
		if _, err := t.Store.Increment(ctx, store.EntryReactions, r.EntryID, -1); err != nil {
			clearErr = err
			return
		}
		_, clearErr = t.Store.Increment(ctx, store.UserReactionsReceived, entry.UserID, -1)
	})
	return false, clearErr
}

func TestReact_ReinsertsWhenRowVanishesAfterConflict(t *testing.T) {
	f := newFixture(t)
	owner, fan := f.user("owner"), f.user("fan")
	e := f.entry(f.activeContest(), owner, 0, t0)

	_, err := f.svc.Reactions.SetReaction(f.ctx, fan.ID, e.ID, fan.ID, models.ReactionLike)
	require.NoError(t, err)

	racy := New(&clearingStore{MemoryStore: f.store}, f.clock, nil, Options{})
	res, err := racy.Reactions.SetReaction(f.ctx, fan.ID, e.ID, fan.ID, models.ReactionFire)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.ReactionsCount)

	current, err := f.svc.Reactions.Current(f.ctx, e.ID, fan.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, models.ReactionFire, *current)
	assert.Equal(t, 1, f.reloadEntry(e).ReactionsCount)
	assert.Equal(t, 1, f.reload(owner).TotalReactionsReceived)
}
