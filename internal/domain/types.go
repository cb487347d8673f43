// Package domain holds the bot's core entities and the pure scheduling
// predicates that operate on them.
package domain

import "time"

// User is a registered Telegram user. Rows are created by the command router
// on /start; the schedulers only read them.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	RegisteredAt time.Time
}

// UserSettings controls reminder delivery for one user.
//
// WorkStart/WorkEnd are hours of day in [0,23]. Equal values mean "always
// eligible" (the full-day default is 0/0).
type UserSettings struct {
	UserID        int64
	MuteReminders bool
	WorkStart     int
	WorkEnd       int
}

// UserWithSettings pairs a user with their settings for one scheduler pass.
type UserWithSettings struct {
	User     User
	Settings UserSettings
}

// Task belongs to exactly one user. Daily tasks return to pending once per
// day at the rotation boundary; LastReset records when that last happened.
// CompletedAt is set when the task is marked done and cleared on undo.
type Task struct {
	ID          int64
	UserID      int64
	AddedBy     int64
	Text        string
	Done        bool
	Daily       bool
	CreatedAt   time.Time
	LastReset   *time.Time
	CompletedAt *time.Time
}

// AdminEntry is a database-managed admin grant. Identities from the protected
// configuration set never appear here; they are admins unconditionally.
type AdminEntry struct {
	UserID  int64
	AddedBy int64
	AddedAt time.Time
}

// PerformanceReport summarizes one user's previous day. It is derived on
// demand from task rows and never persisted.
type PerformanceReport struct {
	CompletedYesterday int
	TotalDaily         int
}

// UserStats is an aggregate row for the admin user overview.
type UserStats struct {
	User      User
	TaskCount int
	DoneCount int
}

// GlobalStats are bot-wide aggregate counts.
type GlobalStats struct {
	Users int
	Tasks int
	Done  int
}
