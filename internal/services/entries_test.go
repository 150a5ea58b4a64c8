package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artarena/internal/models"
)

func TestValidatePhases(t *testing.T) {
	u := "https://cdn.example/p.png"
	cases := []struct {
		name     string
		category models.ContestCategory
		phases   [4]string
		ok       bool
	}{
		{"art needs three", models.CategoryArt, [4]string{u, u, u, ""}, true},
		{"art missing third", models.CategoryArt, [4]string{u, u, "", ""}, false},
		{"art with optional fourth", models.CategoryArt, [4]string{u, u, u, u}, true},
		{"cosplay needs two", models.CategoryCosplay, [4]string{u, "", "", ""}, false},
		{"photo single", models.CategoryPhotography, [4]string{u, "", "", ""}, true},
		{"gap not allowed", models.CategoryVideo, [4]string{u, "", u, ""}, false},
		{"bad url", models.CategoryMusic, [4]string{"ftp://x/a", "", "", ""}, false},
		{"unknown category", "poetry", [4]string{u, "", "", ""}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidatePhases(c.category, c.phases)
			if c.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidInput)
			}
		})
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	c := f.activeContest()
	artist := f.user("artist")
	in := SubmitEntryInput{ContestID: c.ID, Title: "Dawn", PhaseURLs: [4]string{"https://cdn.example/dawn.jpg"}}

	entry, err := f.svc.Entries.Submit(f.ctx, artist.ID, in)
	require.NoError(t, err)
	assert.Equal(t, models.EntryPending, entry.Status)
	assert.Equal(t, 1, f.reload(artist).EntriesCount)
	stored, err := f.store.GetContest(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EntriesCount)

	_, err = f.svc.Entries.Submit(f.ctx, artist.ID, in)
	assert.ErrorIs(t, err, ErrDuplicateEntry)
	assert.Equal(t, 1, f.reload(artist).EntriesCount)

	_, err = f.svc.Entries.Submit(f.ctx, 0, in)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	in.ContestID = 999
	_, err = f.svc.Entries.Submit(f.ctx, artist.ID, in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmit_ValidatesStoredPhases(t *testing.T) {
	f := newFixture(t)
	c := f.activeContest()
	artist := f.user("artist")

	_, err := f.svc.Entries.Submit(f.ctx, artist.ID, SubmitEntryInput{
		ContestID: c.ID, Title: "Gap", PhaseURLs: [4]string{"https://cdn.example/a.jpg", "", "https://cdn.example/c.jpg"},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	entry, err := f.svc.Entries.Submit(f.ctx, artist.ID, SubmitEntryInput{
		ContestID: c.ID, Title: "Padded", PhaseURLs: [4]string{"  https://cdn.example/a.jpg  "},
	})
	require.NoError(t, err)
	assert.Equal(t, [4]string{"https://cdn.example/a.jpg"}, entry.Phases())
}

func TestSubmit_OnlyWhileActive(t *testing.T) {
	f := newFixture(t)
	c := f.endedContest()
	_, err := f.svc.Entries.Submit(f.ctx, f.user("late").ID, SubmitEntryInput{
		ContestID: c.ID, Title: "Late", PhaseURLs: [4]string{"https://cdn.example/a.jpg"},
	})
	assert.ErrorIs(t, err, ErrContestClosed)

	f.clock.Set(t0.Add(-100 * time.Hour))
	_, err = f.svc.Entries.Submit(f.ctx, f.user("early").ID, SubmitEntryInput{
		ContestID: c.ID, Title: "Early", PhaseURLs: [4]string{"https://cdn.example/a.jpg"},
	})
	assert.ErrorIs(t, err, ErrContestClosed)
}

func TestReview(t *testing.T) {
	f := newFixture(t)
	c := f.activeContest()
	artist := f.user("artist")
	entry, err := f.svc.Entries.Submit(f.ctx, artist.ID, SubmitEntryInput{
		ContestID: c.ID, Title: "Dawn", PhaseURLs: [4]string{"https://cdn.example/dawn.jpg"},
	})
	require.NoError(t, err)

	_, err = f.svc.Entries.Review(f.ctx, &artist, entry.ID, true, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = f.svc.Entries.Review(f.ctx, &f.admin, entry.ID, false, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	reviewed, err := f.svc.Entries.Review(f.ctx, &f.admin, entry.ID, false, "off topic")
	require.NoError(t, err)
	assert.Equal(t, models.EntryRejected, reviewed.Status)
	assert.Equal(t, "off topic", reviewed.RejectionReason)

	_, err = f.svc.Entries.Review(f.ctx, &f.admin, entry.ID, true, "")
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	notes, err := f.svc.Notifier.List(f.ctx, artist.ID, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "off topic")

	approved, err := f.svc.Entries.ListApproved(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, approved)
}

func TestListForReview(t *testing.T) {
	f := newFixture(t)
	c := f.activeContest()
	artist, other := f.user("artist"), f.user("other")

	empty, err := f.svc.Entries.ListApproved(f.ctx, c.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	pending, err := f.svc.Entries.Submit(f.ctx, artist.ID, SubmitEntryInput{
		ContestID: c.ID, Title: "Dusk", PhaseURLs: [4]string{"https://cdn.example/dusk.jpg"},
	})
	require.NoError(t, err)
	f.entry(c, other, 3, t0)

	_, err = f.svc.Entries.ListForReview(f.ctx, &artist, c.ID, models.EntryPending)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = f.svc.Entries.ListForReview(f.ctx, &f.admin, c.ID, "bogus")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Entries.ListForReview(f.ctx, &f.admin, 999, models.EntryPending)
	assert.ErrorIs(t, err, ErrNotFound)

	queue, err := f.svc.Entries.ListForReview(f.ctx, &f.admin, c.ID, models.EntryPending)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, pending.ID, queue[0].ID)

	all, err := f.svc.Entries.ListForReview(f.ctx, &f.admin, c.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	rejected, err := f.svc.Entries.ListForReview(f.ctx, &f.admin, c.ID, models.EntryRejected)
	require.NoError(t, err)
	assert.NotNil(t, rejected)
	assert.Empty(t, rejected)

	mine, err := f.svc.Entries.ListByUser(f.ctx, f.admin.ID)
	require.NoError(t, err)
	assert.NotNil(t, mine)
	assert.Empty(t, mine)
}
