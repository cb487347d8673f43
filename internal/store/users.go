package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"remindbot/internal/domain"
)

func (s *SQLite) UpsertUser(ctx context.Context, u domain.User) error {
	registered := u.RegisteredAt
	if registered.IsZero() {
		registered = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, first_name, registered_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username   = excluded.username,
			first_name = excluded.first_name`,
		u.ID, u.Username, u.FirstName, unix(registered),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	// Default settings row (full-day window, reminders on).
	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_settings (user_id) VALUES (?)`, u.ID)
	if err != nil {
		return fmt.Errorf("ensure settings: %w", err)
	}
	return nil
}

func (s *SQLite) ListUsersWithSettings(ctx context.Context) ([]domain.UserWithSettings, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id, u.username, u.first_name, u.registered_at,
		       COALESCE(st.mute_reminders, 0),
		       COALESCE(st.work_start, 0),
		       COALESCE(st.work_end, 0)
		FROM users u
		LEFT JOIN user_settings st ON st.user_id = u.user_id
		ORDER BY u.user_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var res []domain.UserWithSettings
	for rows.Next() {
		var (
			us         domain.UserWithSettings
			registered int64
			mute       int
		)
		if err := rows.Scan(
			&us.User.ID, &us.User.Username, &us.User.FirstName, &registered,
			&mute, &us.Settings.WorkStart, &us.Settings.WorkEnd,
		); err != nil {
			return nil, err
		}
		us.User.RegisteredAt = fromUnix(registered)
		us.Settings.UserID = us.User.ID
		us.Settings.MuteReminders = mute != 0
		res = append(res, us)
	}
	return res, rows.Err()
}

func (s *SQLite) SetMute(ctx context.Context, userID int64, mute bool) error {
	return s.updateSettings(ctx, userID,
		`UPDATE user_settings SET mute_reminders = ? WHERE user_id = ?`,
		boolToInt(mute), userID)
}

func (s *SQLite) SetWorkHours(ctx context.Context, userID int64, start, end int) error {
	if err := domain.ValidateWindow(start, end); err != nil {
		return err
	}
	return s.updateSettings(ctx, userID,
		`UPDATE user_settings SET work_start = ?, work_end = ? WHERE user_id = ?`,
		start, end, userID)
}

func (s *SQLite) updateSettings(ctx context.Context, userID int64, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("settings for user %d: %w", userID, ErrNotFound)
	}
	return nil
}

func (s *SQLite) ListUserStats(ctx context.Context) ([]domain.UserStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id, u.username, u.first_name, u.registered_at,
		       COUNT(t.task_id),
		       COALESCE(SUM(CASE WHEN t.is_done = 1 THEN 1 ELSE 0 END), 0)
		FROM users u
		LEFT JOIN tasks t ON t.user_id = u.user_id
		GROUP BY u.user_id, u.username, u.first_name, u.registered_at
		ORDER BY COUNT(t.task_id) DESC, u.user_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list user stats: %w", err)
	}
	defer rows.Close()

	var res []domain.UserStats
	for rows.Next() {
		var (
			st         domain.UserStats
			registered int64
		)
		if err := rows.Scan(
			&st.User.ID, &st.User.Username, &st.User.FirstName, &registered,
			&st.TaskCount, &st.DoneCount,
		); err != nil {
			return nil, err
		}
		st.User.RegisteredAt = fromUnix(registered)
		res = append(res, st)
	}
	return res, rows.Err()
}

func (s *SQLite) GlobalStats(ctx context.Context) (domain.GlobalStats, error) {
	var g domain.GlobalStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM tasks),
			(SELECT COALESCE(SUM(CASE WHEN is_done = 1 THEN 1 ELSE 0 END), 0) FROM tasks)`,
	).Scan(&g.Users, &g.Tasks, &g.Done)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.GlobalStats{}, fmt.Errorf("global stats: %w", err)
	}
	return g, nil
}
