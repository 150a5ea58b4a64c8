package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artarena/internal/models"
)

type stubFinalizer struct {
	inner  ContestFinalizer
	fail   map[uint]error
	panics map[uint]bool
	calls  []uint
}

func (s *stubFinalizer) Finalize(ctx context.Context, id uint, opts FinalizeOptions) (FinalizationResult, error) {
	s.calls = append(s.calls, id)
	if s.panics[id] {
		panic("boom")
	}
	if err := s.fail[id]; err != nil {
		return FinalizationResult{}, err
	}
	return s.inner.Finalize(ctx, id, opts)
}

type denyLocker struct{}

func (denyLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	return nil, false, nil
}

type brokenLocker struct{}

func (brokenLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	return nil, false, errors.New("redis down")
}

func TestSweep_FinalizesEndedContestsAndIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ok := f.endedContest()
	broken := f.endedContest()
	exploding := f.endedContest()
	active := f.activeContest()
	f.entry(ok, f.user("winner"), 3, t0.Add(-50*time.Hour))

	stub := &stubFinalizer{
		inner:  f.svc.Finalizer,
		fail:   map[uint]error{broken.ID: ErrPartialWrite},
		panics: map[uint]bool{exploding.ID: true},
	}
	sched := NewScheduler(f.store, stub, nil, SchedulerOptions{}, f.clock, nil)

	outcomes, err := sched.Sweep(f.ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.NotContains(t, stub.calls, active.ID)

	byID := map[uint]SweepOutcome{}
	for _, o := range outcomes {
		byID[o.ContestID] = o
	}
	assert.True(t, byID[ok.ID].Finalized)
	assert.Equal(t, 1, byID[ok.ID].Winners)
	assert.Equal(t, ok.Title, byID[ok.ID].ContestTitle)
	assert.False(t, byID[broken.ID].Finalized)
	assert.ErrorIs(t, byID[broken.ID].Err, ErrPartialWrite)
	assert.False(t, byID[exploding.ID].Finalized)
	assert.Error(t, byID[exploding.ID].Err)

	stored, err := f.store.GetContest(f.ctx, ok.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.FinalizedAt)

	// 第二次只会重试失败的那两个
	stub.fail = nil
	stub.panics = nil
	outcomes, err = sched.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.True(t, o.Finalized)
	}
}

func TestSweep_LeaseHeldElsewhere(t *testing.T) {
	f := newFixture(t)
	f.endedContest()
	sched := NewScheduler(f.store, f.svc.Finalizer, denyLocker{}, SchedulerOptions{}, f.clock, nil)

	outcomes, err := sched.Sweep(f.ctx)
	assert.ErrorIs(t, err, ErrSweepLocked)
	assert.Empty(t, outcomes)
}

func TestSweep_LockerErrorStillSweeps(t *testing.T) {
	f := newFixture(t)
	c := f.endedContest()
	sched := NewScheduler(f.store, f.svc.Finalizer, brokenLocker{}, SchedulerOptions{}, f.clock, nil)

	outcomes, err := sched.Sweep(f.ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, c.ID, outcomes[0].ContestID)
	assert.True(t, outcomes[0].Finalized)
}

func TestScheduler_RunStopsWithContext(t *testing.T) {
	f := newFixture(t)
	c := f.endedContest()
	ctx, cancel := context.WithCancel(f.ctx)

	done := make(chan struct{})
	go func() {
		f.svc.Scheduler.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		stored, err := f.store.GetContest(f.ctx, c.ID)
		return err == nil && stored.FinalizedAt != nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSweep_SkipsFinalizedContests(t *testing.T) {
	f := newFixture(t)
	c := f.endedContest()
	_, err := f.svc.Finalizer.Finalize(f.ctx, c.ID, FinalizeOptions{})
	require.NoError(t, err)

	outcomes, err := f.svc.Scheduler.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, outcomes)

	status, err := f.svc.Contests.Status(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinalized, status)
}
