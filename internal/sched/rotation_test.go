package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindbot/internal/domain"
	"remindbot/pkg/logx"
)

func newTestRotation(st *fakeStore, d *fakeDeliverer, at time.Time) *Rotation {
	r := newRotation(testConfig(time.UTC), st, d, newUserLocks(), logx.Nop())
	r.now = fixedClock(at)
	return r
}

func TestRotationReportsAndResets(t *testing.T) {
	at := time.Date(2026, 3, 10, 0, 5, 0, 0, time.UTC)

	st := newFakeStore()
	st.addUser(1, false, 9, 21)
	st.daily[1] = []domain.Task{
		{ID: 1, UserID: 1, Text: "standup", Daily: true},
		{ID: 2, UserID: 1, Text: "inbox zero", Daily: true},
	}
	// Two completions yesterday, one the day before, one today.
	st.completed[1] = []time.Time{
		at.Add(-20 * time.Hour),
		at.Add(-10 * time.Hour),
		at.Add(-40 * time.Hour),
		at.Add(-time.Minute),
	}

	d := newFakeDeliverer()
	r := newTestRotation(st, d, at)

	out, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RotationOutcome{Reported: 1, ResetTasks: 2}, out)
	assert.Equal(t, 1, st.resetCalls[1])
	assert.Equal(t, domain.PerformanceReport{CompletedYesterday: 2, TotalDaily: 2}, d.reports[1])
}

func TestRotationSendsEmptyReport(t *testing.T) {
	st := newFakeStore()
	st.addUser(1, false, 0, 0)
	d := newFakeDeliverer()
	r := newTestRotation(st, d, time.Date(2026, 3, 10, 0, 5, 0, 0, time.UTC))

	out, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Reported)
	report, ok := d.reports[1]
	require.True(t, ok, "a user with nothing to report still gets one")
	assert.Equal(t, domain.PerformanceReport{}, report)
}

func TestRotationMuteDoesNotSuppressReport(t *testing.T) {
	st := newFakeStore()
	st.addUser(1, true, 9, 21) // mute applies to reminders only
	d := newFakeDeliverer()
	r := newTestRotation(st, d, time.Date(2026, 3, 10, 0, 5, 0, 0, time.UTC))

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, d.reports, int64(1))
}

func TestRotationIdempotentWithinDay(t *testing.T) {
	at := time.Date(2026, 3, 10, 0, 5, 0, 0, time.UTC)
	st := newFakeStore()
	st.addUser(1, false, 0, 0)
	d := newFakeDeliverer()
	r := newTestRotation(st, d, at)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	// Same day: duplicate fire is swallowed.
	r.now = fixedClock(at.Add(2 * time.Hour))
	out, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, out.Reported)
	assert.Equal(t, 1, st.resetCalls[1])

	// Next day: fires again.
	r.now = fixedClock(at.AddDate(0, 0, 1))
	out, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Reported)
	assert.Equal(t, 2, st.resetCalls[1])
}

func TestRotationUserListErrorLeavesGuardClear(t *testing.T) {
	at := time.Date(2026, 3, 10, 0, 5, 0, 0, time.UTC)
	st := newFakeStore()
	st.addUser(1, false, 0, 0)
	st.usersErr = errors.New("database locked")
	d := newFakeDeliverer()
	r := newTestRotation(st, d, at)

	_, err := r.Run(context.Background())
	require.Error(t, err)

	st.usersErr = nil
	out, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Reported, "retry on the same day succeeds after a failed load")
}

func TestRotationUserFailureContinues(t *testing.T) {
	st := newFakeStore()
	st.addUser(1, false, 0, 0)
	st.addUser(2, false, 0, 0)
	d := newFakeDeliverer()
	d.failFor[1] = true
	r := newTestRotation(st, d, time.Date(2026, 3, 10, 0, 5, 0, 0, time.UTC))

	out, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, 1, out.Reported)
	assert.Contains(t, d.reports, int64(2))
	// The failed user's tasks were still rotated; only delivery failed.
	assert.Equal(t, 1, st.resetCalls[1])
}

func TestResetEngineWindowUsesLocalCalendarDay(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 00:05 local on Mar 10; yesterday is Mar 9 00:00–Mar 10 00:00 local.
	asOf := time.Date(2026, 3, 10, 0, 5, 0, 0, loc)
	st := newFakeStore()
	st.completed[1] = []time.Time{
		time.Date(2026, 3, 9, 0, 0, 0, 0, loc),   // inclusive start
		time.Date(2026, 3, 9, 23, 59, 0, 0, loc), // late yesterday
		time.Date(2026, 3, 10, 0, 0, 0, 0, loc),  // exclusive end
		time.Date(2026, 3, 8, 23, 59, 0, 0, loc), // day before
	}

	e := newResetEngine(st, loc)
	report, err := e.ComputeAndReset(context.Background(), 1, asOf)
	require.NoError(t, err)
	assert.Equal(t, 2, report.CompletedYesterday)
	assert.Equal(t, 1, st.resetCalls[1])
}
