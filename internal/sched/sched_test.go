package sched

import (
	"context"
	"errors"
	"time"

	"remindbot/internal/domain"
)

// fakeStore is an in-memory Store for scheduler tests.
type fakeStore struct {
	users    []domain.UserWithSettings
	usersErr error

	undone    map[int64][]domain.Task
	undoneErr map[int64]error
	daily     map[int64][]domain.Task
	completed map[int64][]time.Time

	resetCalls map[int64]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		undone:     make(map[int64][]domain.Task),
		undoneErr:  make(map[int64]error),
		daily:      make(map[int64][]domain.Task),
		completed:  make(map[int64][]time.Time),
		resetCalls: make(map[int64]int),
	}
}

func (f *fakeStore) addUser(id int64, mute bool, start, end int) {
	f.users = append(f.users, domain.UserWithSettings{
		User: domain.User{ID: id},
		Settings: domain.UserSettings{
			UserID: id, MuteReminders: mute, WorkStart: start, WorkEnd: end,
		},
	})
}

func (f *fakeStore) ListUsersWithSettings(context.Context) ([]domain.UserWithSettings, error) {
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return f.users, nil
}

func (f *fakeStore) ListUndoneTasks(_ context.Context, userID int64) ([]domain.Task, error) {
	if err := f.undoneErr[userID]; err != nil {
		return nil, err
	}
	return f.undone[userID], nil
}

func (f *fakeStore) ListDailyTasks(_ context.Context, userID int64) ([]domain.Task, error) {
	return f.daily[userID], nil
}

func (f *fakeStore) ResetDailyTasks(_ context.Context, userID int64, _ time.Time) (int, error) {
	f.resetCalls[userID]++
	return len(f.daily[userID]), nil
}

func (f *fakeStore) CountCompletedInWindow(_ context.Context, userID int64, start, end time.Time) (int, error) {
	n := 0
	for _, ts := range f.completed[userID] {
		if !ts.Before(start) && ts.Before(end) {
			n++
		}
	}
	return n, nil
}

// fakeDeliverer records sends and can fail selected users.
type fakeDeliverer struct {
	reminders map[int64][]domain.Task
	reports   map[int64]domain.PerformanceReport
	failFor   map[int64]bool
}

var errSendFailed = errors.New("send failed")

func newFakeDeliverer() *fakeDeliverer {
	return &fakeDeliverer{
		reminders: make(map[int64][]domain.Task),
		reports:   make(map[int64]domain.PerformanceReport),
		failFor:   make(map[int64]bool),
	}
}

func (f *fakeDeliverer) SendReminder(_ context.Context, userID int64, tasks []domain.Task) error {
	if f.failFor[userID] {
		return errSendFailed
	}
	f.reminders[userID] = tasks
	return nil
}

func (f *fakeDeliverer) SendDailyReport(_ context.Context, userID int64, report domain.PerformanceReport) error {
	if f.failFor[userID] {
		return errSendFailed
	}
	f.reports[userID] = report
	return nil
}

func testConfig(loc *time.Location) Config {
	return Config{
		Location:              loc,
		ReminderIntervalHours: 2,
		ResetHour:             0,
		ResetMinute:           5,
		DeliveryTimeout:       time.Second,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
