// Package sched runs the two timer loops: periodic task reminders during each
// user's working hours, and the once-a-day report + daily-task rotation.
// Firing is wall-clock aligned in the configured timezone (cron semantics,
// not interval-from-start); a missed fire is skipped, never backfilled.
//
// The package assumes a single active instance per database.
package sched

import (
	"context"
	"time"

	"remindbot/internal/domain"
)

// Store is the persistence surface the schedulers need.
// *store.SQLite satisfies it.
type Store interface {
	ListUsersWithSettings(ctx context.Context) ([]domain.UserWithSettings, error)
	ListUndoneTasks(ctx context.Context, userID int64) ([]domain.Task, error)
	ListDailyTasks(ctx context.Context, userID int64) ([]domain.Task, error)
	ResetDailyTasks(ctx context.Context, userID int64, now time.Time) (int, error)
	CountCompletedInWindow(ctx context.Context, userID int64, start, end time.Time) (int, error)
}

// Deliverer sends scheduler output to a user. Implemented by the Telegram
// adapter; faked in tests.
type Deliverer interface {
	SendReminder(ctx context.Context, userID int64, tasks []domain.Task) error
	SendDailyReport(ctx context.Context, userID int64, report domain.PerformanceReport) error
}

// Config carries the already-validated scheduler settings. Location must be
// non-nil and ReminderIntervalHours must divide 24; config.Validate enforces
// both before this package ever sees them.
type Config struct {
	Location              *time.Location
	ReminderIntervalHours int
	ResetHour             int
	ResetMinute           int
	DeliveryTimeout       time.Duration
}

// TickOutcome counts what a single reminder tick did, for logging.
type TickOutcome struct {
	Considered    int
	Sent          int
	SkippedMuted  int
	SkippedWindow int
	SkippedEmpty  int
	Failed        int
}

// RotationOutcome counts what a single daily rotation did.
type RotationOutcome struct {
	Reported   int
	ResetTasks int
	Failed     int
}
