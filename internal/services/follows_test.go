package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowUnfollow(t *testing.T) {
	f := newFixture(t)
	a, b := f.user("a"), f.user("b")

	created, err := f.svc.Follows.Follow(f.ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.Follows.Follow(f.ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, 1, f.reload(b).FollowersCount)
	assert.Equal(t, 1, f.reload(a).FollowingCount)

	notes, err := f.store.ListNotifications(f.ctx, b.ID, 10)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	removed, err := f.svc.Follows.Unfollow(f.ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = f.svc.Follows.Unfollow(f.ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Equal(t, 0, f.reload(b).FollowersCount)
	assert.Equal(t, 0, f.reload(a).FollowingCount)
}

func TestFollow_Rejections(t *testing.T) {
	f := newFixture(t)
	a := f.user("a")

	_, err := f.svc.Follows.Follow(f.ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Follows.Follow(f.ctx, a.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Follows.Follow(f.ctx, 0, a.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}
