package store

import (
	"context"
	"database/sql"
	"fmt"

	"remindbot/pkg/logx"
)

// Base schema. Later additions never rewrite these statements; they go through
// ensureColumn below so an old database upgrades in place on first run.
var baseSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id       INTEGER PRIMARY KEY,
		username      TEXT NOT NULL DEFAULT '',
		first_name    TEXT NOT NULL DEFAULT '',
		registered_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		task_id    INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		added_by   INTEGER NOT NULL DEFAULT 0,
		text       TEXT NOT NULL,
		is_done    INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id)`,
	`CREATE TABLE IF NOT EXISTS user_settings (
		user_id        INTEGER PRIMARY KEY REFERENCES users(user_id) ON DELETE CASCADE,
		mute_reminders INTEGER NOT NULL DEFAULT 0,
		work_start     INTEGER NOT NULL DEFAULT 0,
		work_end       INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS admins (
		user_id  INTEGER PRIMARY KEY,
		added_by INTEGER NOT NULL DEFAULT 0,
		added_at INTEGER NOT NULL
	)`,
}

// Columns added after the first release. Additive-only: "add column if
// missing" with a default, so the schedulers tolerate rows that predate the
// column.
var addedColumns = []struct {
	table, column, decl string
}{
	{"tasks", "is_daily", "INTEGER NOT NULL DEFAULT 0"},
	{"tasks", "last_reset", "INTEGER"},
	{"tasks", "completed_at", "INTEGER"},
}

func (s *SQLite) migrate(ctx context.Context) error {
	for _, stmt := range baseSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, c := range addedColumns {
		if err := s.ensureColumn(ctx, c.table, c.column, c.decl); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) ensureColumn(ctx context.Context, table, column, decl string) error {
	has, err := s.hasColumn(ctx, table, column)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	if err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	s.log.Info("schema column added", logx.String("table", table), logx.String("column", column))
	return nil
}

func (s *SQLite) hasColumn(ctx context.Context, table, column string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
