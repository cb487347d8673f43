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

func newTestReminder(st *fakeStore, d *fakeDeliverer, at time.Time) *Reminder {
	r := newReminder(testConfig(time.UTC), st, d, newUserLocks(), logx.Nop())
	r.now = fixedClock(at)
	return r
}

func TestReminderTickOutcomes(t *testing.T) {
	st := newFakeStore()
	st.addUser(1, false, 9, 21) // in window, has tasks
	st.addUser(2, true, 9, 21)  // muted
	st.addUser(3, false, 14, 18) // outside window at 10:00
	st.addUser(4, false, 0, 0)  // always-on window, nothing to do

	st.undone[1] = []domain.Task{{ID: 11, UserID: 1, Text: "ship it"}}

	d := newFakeDeliverer()
	r := newTestReminder(st, d, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC))

	out, err := r.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TickOutcome{
		Considered:    4,
		Sent:          1,
		SkippedMuted:  1,
		SkippedWindow: 1,
		SkippedEmpty:  1,
	}, out)
	require.Len(t, d.reminders[1], 1)
	assert.Equal(t, int64(11), d.reminders[1][0].ID)
	assert.NotContains(t, d.reminders, int64(2))
}

func TestReminderTickOvernightWindow(t *testing.T) {
	st := newFakeStore()
	st.addUser(1, false, 21, 6)
	st.undone[1] = []domain.Task{{ID: 1, UserID: 1, Text: "night shift"}}
	d := newFakeDeliverer()

	r := newTestReminder(st, d, time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC))
	out, err := r.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Sent)

	r.now = fixedClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	out, err = r.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.SkippedWindow)
}

func TestReminderTickFailuresDoNotBlockOthers(t *testing.T) {
	st := newFakeStore()
	st.addUser(1, false, 0, 0)
	st.addUser(2, false, 0, 0)
	st.addUser(3, false, 0, 0)
	for _, id := range []int64{1, 2, 3} {
		st.undone[id] = []domain.Task{{ID: id * 10, UserID: id, Text: "t"}}
	}
	st.undoneErr[1] = errors.New("disk on fire")

	d := newFakeDeliverer()
	d.failFor[2] = true

	r := newTestReminder(st, d, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC))
	out, err := r.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, out.Failed)
	assert.Equal(t, 1, out.Sent)
	assert.Contains(t, d.reminders, int64(3))
}

func TestReminderTickAbortsOnUserListError(t *testing.T) {
	st := newFakeStore()
	st.usersErr = errors.New("database locked")
	r := newTestReminder(st, newFakeDeliverer(), time.Now())

	_, err := r.Tick(context.Background())
	require.ErrorContains(t, err, "load users")
}
