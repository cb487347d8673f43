// Package store persists users, tasks, settings and admin grants in SQLite.
//
// The schedulers consume the narrow read/reset surface; the Telegram router
// uses the rest. SQLite runs with a single writer connection, so all mutations
// funnel through one writer regardless of caller concurrency.
package store

import (
	"context"
	"errors"
	"time"

	"remindbot/internal/domain"
)

// ErrNotFound is returned when a row the caller addressed does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the full persistence API.
type Store interface {
	SchedulerStore
	AdminStore

	// UpsertUser registers a user or refreshes the mutable identity fields,
	// keeping the original registration timestamp. It also ensures a default
	// settings row exists.
	UpsertUser(ctx context.Context, u domain.User) error

	AddTask(ctx context.Context, userID, addedBy int64, text string) (domain.Task, error)
	// ToggleTask flips done for the user's task, maintaining completed_at:
	// set on done, cleared on undo. Returns the new done state.
	ToggleTask(ctx context.Context, taskID, userID int64) (bool, error)
	DeleteTask(ctx context.Context, taskID int64) error
	SetTaskDaily(ctx context.Context, taskID int64, daily bool) error
	ListTasks(ctx context.Context, userID int64) ([]domain.Task, error)

	SetMute(ctx context.Context, userID int64, mute bool) error
	SetWorkHours(ctx context.Context, userID int64, start, end int) error

	ListUserStats(ctx context.Context) ([]domain.UserStats, error)
	GlobalStats(ctx context.Context) (domain.GlobalStats, error)

	Close() error
}

// SchedulerStore is what the timer loops need.
type SchedulerStore interface {
	ListUsersWithSettings(ctx context.Context) ([]domain.UserWithSettings, error)
	ListUndoneTasks(ctx context.Context, userID int64) ([]domain.Task, error)
	ListDailyTasks(ctx context.Context, userID int64) ([]domain.Task, error)
	// ResetDailyTasks marks every daily task of the user pending again and
	// stamps last_reset. One transactional unit per user; returns the number
	// of daily rows touched.
	ResetDailyTasks(ctx context.Context, userID int64, now time.Time) (int, error)
	// CountCompletedInWindow counts the user's tasks with completed_at in
	// [start, end).
	CountCompletedInWindow(ctx context.Context, userID int64, start, end time.Time) (int, error)
}

// AdminStore backs the runtime-managed half of the admin registry.
type AdminStore interface {
	ListAdmins(ctx context.Context) ([]domain.AdminEntry, error)
	InsertAdmin(ctx context.Context, e domain.AdminEntry) error
	DeleteAdmin(ctx context.Context, userID int64) error
}
